package reconcile

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

// Filter narrows DetailedAnalysis output. Position and Candidate match the
// resolved names; From/To bound voted_at inclusively.
type Filter struct {
	Search    string
	Class     string
	Position  string
	Candidate string
	From      *time.Time
	To        *time.Time
}

// VoterBallot is one voter's reconstructed ballot. VotedFor maps position
// name to candidate name; multi-selection positions join names with ", ".
type VoterBallot struct {
	Name     string            `json:"name"`
	VoterID  string            `json:"voterId"`
	Class    string            `json:"class"`
	House    string            `json:"house"`
	Year     string            `json:"year"`
	VotedAt  *time.Time        `json:"votedAt"`
	VotedFor map[string]string `json:"votedFor"`
}

type Engine struct {
	voters     store.VoterStore
	votes      store.VoteStore
	positions  store.PositionStore
	candidates store.CandidateStore
}

func NewEngine(voters store.VoterStore, votes store.VoteStore, positions store.PositionStore, candidates store.CandidateStore) *Engine {
	return &Engine{voters: voters, votes: votes, positions: positions, candidates: candidates}
}

// DetailedAnalysis reconstructs the ballot of every voter matching the
// filter. A reference that defeats every fallback becomes a placeholder
// entry; it never drops the voter's other selections.
func (e *Engine) DetailedAnalysis(ctx context.Context, electionID primitive.ObjectID, filter Filter) ([]VoterBallot, error) {
	positions, err := e.positions.Positions(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := e.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	resolver := NewResolver(positions, candidates)

	voters, err := e.voters.ListVoted(ctx, electionID, store.VoterFilter{
		Class: filter.Class,
		From:  filter.From,
		To:    filter.To,
	})
	if err != nil {
		return nil, err
	}

	votes, err := e.votes.ByElection(ctx, electionID)
	if err != nil {
		return nil, err
	}
	byVoter := map[string][]mongo.Vote{}
	for _, v := range votes {
		byVoter[v.Voter] = append(byVoter[v.Voter], v)
	}

	ballots := []VoterBallot{}
	for _, voter := range voters {
		ballot := VoterBallot{
			Name:     voter.Name,
			VoterID:  voter.VoterID,
			Class:    voter.Class,
			House:    voter.House,
			Year:     voter.Year,
			VotedAt:  voter.VotedAt,
			VotedFor: map[string]string{},
		}
		for _, vote := range byVoter[voter.VoterID] {
			position := resolver.Position(vote.Position)
			candidate := resolver.Candidate(vote.Position, vote.Candidate)
			if prev, ok := ballot.VotedFor[position]; ok {
				ballot.VotedFor[position] = prev + ", " + candidate
			} else {
				ballot.VotedFor[position] = candidate
			}
		}
		if !matches(ballot, filter) {
			continue
		}
		ballots = append(ballots, ballot)
	}
	return ballots, nil
}

func matches(ballot VoterBallot, filter Filter) bool {
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		haystack := strings.ToLower(strings.Join([]string{
			ballot.Name, ballot.VoterID, ballot.Class, ballot.House, ballot.Year,
		}, " "))
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	if filter.Position != "" {
		if _, ok := ballot.VotedFor[filter.Position]; !ok {
			found := false
			for position := range ballot.VotedFor {
				if strings.EqualFold(position, filter.Position) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	if filter.Candidate != "" {
		found := false
		for _, candidate := range ballot.VotedFor {
			for _, name := range strings.Split(candidate, ", ") {
				if strings.EqualFold(name, filter.Candidate) {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}
