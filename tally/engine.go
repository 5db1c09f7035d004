// Package tally aggregates committed vote rows into per-position counts,
// percentages and turnout. Read-only and safe to run while votes are still
// being submitted; a tally computed mid-election may miss a vote that
// commits a moment later.
package tally

import (
	"context"
	"math"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/reconcile"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

type CandidateTally struct {
	Candidate  string  `json:"candidate"`
	VoteCount  int     `json:"voteCount"`
	Percentage float64 `json:"percentage"`
}

type PositionTally struct {
	Position   string           `json:"position"`
	Candidates []CandidateTally `json:"candidates"`
	TotalVotes int              `json:"totalVotes"`
}

type Turnout struct {
	Total      int64   `json:"total"`
	Voted      int64   `json:"voted"`
	NotVoted   int64   `json:"notVoted"`
	Percentage float64 `json:"percentage"`
}

type Engine struct {
	votes      store.VoteStore
	voters     store.VoterStore
	positions  store.PositionStore
	candidates store.CandidateStore
}

func NewEngine(votes store.VoteStore, voters store.VoterStore, positions store.PositionStore, candidates store.CandidateStore) *Engine {
	return &Engine{votes: votes, voters: voters, positions: positions, candidates: candidates}
}

// Results tallies every position in priority order. Candidates keep their
// registration order; ordering by count is stable, so equal counts tie in
// registration order. Rows resolved to "Abstained" or a placeholder show
// up as their own tally lines, keeping sum(counts) == totalVotes == rows.
func (e *Engine) Results(ctx context.Context, electionID primitive.ObjectID) ([]PositionTally, error) {
	positions, err := e.positions.Positions(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := e.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	votes, err := e.votes.ByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}

	resolver := reconcile.NewResolver(positions, candidates)

	counts := map[string]map[string]int{}
	order := map[string][]string{}
	for _, vote := range votes {
		position := resolver.Position(vote.Position)
		candidate := resolver.Candidate(vote.Position, vote.Candidate)
		if counts[position] == nil {
			counts[position] = map[string]int{}
		}
		if _, seen := counts[position][candidate]; !seen {
			order[position] = append(order[position], candidate)
		}
		counts[position][candidate]++
	}

	candidatesOf := map[string][]string{}
	for _, c := range candidates {
		title, ok := "", false
		for _, p := range positions {
			if p.ID == c.PositionID {
				title, ok = p.Title, true
				break
			}
		}
		if ok {
			candidatesOf[title] = append(candidatesOf[title], c.Name)
		}
	}

	tallies := make([]PositionTally, 0, len(positions))
	seenPositions := map[string]bool{}
	for _, p := range positions {
		tallies = append(tallies, e.tallyPosition(p.Title, candidatesOf[p.Title], counts[p.Title], order[p.Title]))
		seenPositions[p.Title] = true
	}

	// Legacy rows can resolve to a position name outside the current
	// position set; their counts are reported rather than dropped.
	extra := []string{}
	for position := range counts {
		if !seenPositions[position] {
			extra = append(extra, position)
		}
	}
	sort.Strings(extra)
	for _, position := range extra {
		tallies = append(tallies, e.tallyPosition(position, nil, counts[position], order[position]))
	}

	return tallies, nil
}

func (e *Engine) tallyPosition(title string, registered []string, counts map[string]int, encountered []string) PositionTally {
	names := make([]string, 0, len(registered)+len(counts))
	seen := map[string]bool{}
	for _, name := range registered {
		names = append(names, name)
		seen[name] = true
	}
	for _, name := range encountered {
		if !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	total := 0
	for _, count := range counts {
		total += count
	}

	entries := make([]CandidateTally, 0, len(names))
	for _, name := range names {
		entries = append(entries, CandidateTally{
			Candidate:  name,
			VoteCount:  counts[name],
			Percentage: percentage(counts[name], total),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].VoteCount > entries[j].VoteCount })

	return PositionTally{Position: title, Candidates: entries, TotalVotes: total}
}

// Turnout reports registered vs voted counts for the election.
func (e *Engine) Turnout(ctx context.Context, electionID primitive.ObjectID) (Turnout, error) {
	total, voted, err := e.voters.CountByElection(ctx, electionID)
	if err != nil {
		return Turnout{}, err
	}
	return Turnout{
		Total:      total,
		Voted:      voted,
		NotVoted:   total - voted,
		Percentage: percentage(int(voted), int(total)),
	}, nil
}

// percentage rounds to one decimal and is 0 when total is 0.
func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
