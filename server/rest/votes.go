package rest

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campuselect/api.vote.campuselect.dev/voting"
)

// SubmitVote handles POST /votes/submit. On success the voter gets their
// receipt token; resubmitting is rejected by the claim, never retried.
func (h *handlers) SubmitVote(c *fiber.Ctx) error {
	req := voting.Request{}
	if err := c.BodyParser(&req); err != nil {
		return respond(c, 400, "Invalid request body.")
	}

	receipt, err := h.deps.Voting.Submit(c.Context(), req)
	if err != nil {
		return apiError(c, err)
	}

	return c.JSON(&fiber.Map{
		"success":   true,
		"voteToken": receipt.VoteToken,
		"votedAt":   receipt.VotedAt,
	})
}
