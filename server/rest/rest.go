// Package rest exposes the election voting surface over HTTP.
package rest

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/campuselect/api.vote.campuselect.dev/audit"
	"github.com/campuselect/api.vote.campuselect.dev/auth"
	"github.com/campuselect/api.vote.campuselect.dev/election"
	"github.com/campuselect/api.vote.campuselect.dev/reconcile"
	"github.com/campuselect/api.vote.campuselect.dev/store"
	"github.com/campuselect/api.vote.campuselect.dev/tally"
	"github.com/campuselect/api.vote.campuselect.dev/voting"
)

type Deps struct {
	Elections *election.Manager
	Voting    *voting.Service
	Tally     *tally.Engine
	Reconcile *reconcile.Engine
	Audit     *audit.Logger
	JwtSecret string
}

// REST mounts all routes. Voter-facing routes are open; administrative
// ones sit behind the JWT admin gate.
func REST(app fiber.Router, deps Deps) {
	h := &handlers{deps: deps}
	admin := auth.Middleware(deps.JwtSecret, auth.RoleAdmin)

	app.Post("/votes/submit", h.SubmitVote)

	app.Get("/elections/status", h.Status)
	app.Get("/elections/live", liveGate(deps.Elections), liveFeed())

	app.Post("/elections/toggle", admin, h.ToggleActive)
	app.Post("/elections/toggle-results", admin, h.ToggleResults)
	app.Get("/elections/results", admin, h.Results)
	app.Get("/elections/detailed-vote-analysis", admin, h.DetailedAnalysis)
	app.Post("/elections/:id/current", admin, h.SetCurrent)
	app.Get("/elections/:id/results", admin, h.Results)
}

type handlers struct {
	deps Deps
}

// apiError translates the service error taxonomy into status codes:
// validation 400, missing resources 404, double votes 409. Anything else
// bubbles to the fiber error handler as a 500.
func apiError(c *fiber.Ctx, err error) error {
	var validation *voting.ValidationError
	switch {
	case errors.As(err, &validation):
		return respond(c, 400, validation.Error())
	case errors.Is(err, voting.ErrAlreadyVoted):
		return respond(c, 409, "Voter has already voted.")
	case errors.Is(err, voting.ErrVoterNotFound):
		return respond(c, 404, "Voter not found.")
	case errors.Is(err, election.ErrNoElection):
		return respond(c, 404, "No active election found.")
	case errors.Is(err, store.ErrNotFound):
		return respond(c, 404, "Not found.")
	default:
		return err
	}
}

func respond(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(&fiber.Map{
		"status":  status,
		"message": message,
	})
}

func actor(c *fiber.Ctx) string {
	if claims, ok := c.Locals("claims").(*auth.Claims); ok && claims != nil {
		return claims.UserID
	}
	return ""
}
