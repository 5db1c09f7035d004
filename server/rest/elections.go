package rest

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/reconcile"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

// Status handles GET /elections/status. When no election is current the
// default snapshot comes back with a 404, so consumers still get resolved
// window fields to render.
func (h *handlers) Status(c *fiber.Ctx) error {
	snapshot, err := h.deps.Elections.Status(c.Context())
	if err != nil {
		return err
	}
	if snapshot.NoCurrent {
		return c.Status(404).JSON(snapshot)
	}
	return c.JSON(snapshot)
}

// ToggleActive handles POST /elections/toggle.
func (h *handlers) ToggleActive(c *fiber.Ctx) error {
	updated, err := h.deps.Elections.ToggleActive(c.Context())
	if err != nil {
		return apiError(c, err)
	}

	h.deps.Audit.Log("election.toggle", actor(c), fmt.Sprintf("is_active=%v", updated.IsActive))

	return c.JSON(&fiber.Map{
		"isActive": updated.IsActive,
		"status":   updated.Status,
	})
}

// ToggleResults handles POST /elections/toggle-results.
func (h *handlers) ToggleResults(c *fiber.Ctx) error {
	req := struct {
		Published bool `json:"published"`
	}{}
	if err := c.BodyParser(&req); err != nil {
		return respond(c, 400, "Invalid request body.")
	}

	updated, err := h.deps.Elections.PublishResults(c.Context(), req.Published)
	if err != nil {
		return apiError(c, err)
	}

	h.deps.Audit.Log("election.toggle-results", actor(c), fmt.Sprintf("results_published=%v", updated.ResultsPublished))

	return c.JSON(&fiber.Map{
		"resultsPublished": updated.ResultsPublished,
	})
}

// SetCurrent handles POST /elections/:id/current.
func (h *handlers) SetCurrent(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.deps.Elections.SetCurrent(c.Context(), id); err != nil {
		return apiError(c, err)
	}

	h.deps.Audit.Log("election.set-current", actor(c), id)

	return c.JSON(&fiber.Map{"success": true})
}

// Results handles GET /elections/results and GET /elections/:id/results.
func (h *handlers) Results(c *fiber.Ctx) error {
	electionID, err := h.electionID(c)
	if err != nil {
		return apiError(c, err)
	}

	results, err := h.deps.Tally.Results(c.Context(), electionID)
	if err != nil {
		return err
	}
	turnout, err := h.deps.Tally.Turnout(c.Context(), electionID)
	if err != nil {
		return err
	}

	return c.JSON(&fiber.Map{
		"results": results,
		"turnout": turnout,
	})
}

// DetailedAnalysis handles GET /elections/detailed-vote-analysis. An empty
// match set is a 200 with an empty array, not an error.
func (h *handlers) DetailedAnalysis(c *fiber.Ctx) error {
	electionID, err := h.electionID(c)
	if err != nil {
		return apiError(c, err)
	}

	filter := reconcile.Filter{
		Search:    c.Query("search"),
		Class:     c.Query("class"),
		Position:  c.Query("position"),
		Candidate: c.Query("candidate"),
	}
	if from, ok, err := queryDate(c, "from", 0); err != nil {
		return respond(c, 400, "Invalid from date, expected YYYY-MM-DD.")
	} else if ok {
		filter.From = &from
	}
	// The to bound is inclusive: the whole day counts.
	if to, ok, err := queryDate(c, "to", 24*time.Hour-time.Second); err != nil {
		return respond(c, 400, "Invalid to date, expected YYYY-MM-DD.")
	} else if ok {
		filter.To = &to
	}

	ballots, err := h.deps.Reconcile.DetailedAnalysis(c.Context(), electionID, filter)
	if err != nil {
		return err
	}
	return c.JSON(ballots)
}

func (h *handlers) electionID(c *fiber.Ctx) (primitive.ObjectID, error) {
	if id := c.Params("id"); id != "" {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return primitive.NilObjectID, store.ErrNotFound
		}
		return oid, nil
	}
	current, err := h.deps.Elections.Current(c.Context())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return current.ID, nil
}

func queryDate(c *fiber.Ctx, name string, offset time.Duration) (time.Time, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.Add(offset), true, nil
}
