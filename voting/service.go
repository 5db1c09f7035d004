// Package voting records ballots. The conditional claim inside the store
// is the only double-vote gate; nothing here relies on read-then-write.
package voting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/audit"
	"github.com/campuselect/api.vote.campuselect.dev/election"
	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
	"github.com/campuselect/api.vote.campuselect.dev/utils"
)

var (
	ErrAlreadyVoted  = errors.New("already voted")
	ErrVoterNotFound = errors.New("voter not found")
	ErrNoElection    = election.ErrNoElection
)

// ValidationError carries a caller-facing message for a malformed ballot.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

type Selection struct {
	PositionID  string `json:"positionId"`
	CandidateID string `json:"candidateId"`
}

type Request struct {
	VoterID     string      `json:"voterId"`
	Selections  []Selection `json:"selections"`
	Abstentions []string    `json:"abstentions"`
}

// Receipt is the proof of voting returned to the voter. The token is not
// used for any further authorization.
type Receipt struct {
	VoteToken string    `json:"voteToken"`
	VotedAt   time.Time `json:"votedAt"`
}

// Publisher forwards committed votes to the live results feed. Failures
// are logged by implementations, never surfaced to the voter.
type Publisher interface {
	PublishVotes(ctx context.Context, electionID string, votes []mongo.Vote)
}

type Service struct {
	elections  *election.Manager
	voters     store.VoterStore
	positions  store.PositionStore
	candidates store.CandidateStore
	live       Publisher
	audit      *audit.Logger
	clock      election.Clock
}

// NewService builds a Service. live and auditor may be nil; clock may be
// nil for the wall clock.
func NewService(
	elections *election.Manager,
	voters store.VoterStore,
	positions store.PositionStore,
	candidates store.CandidateStore,
	live Publisher,
	auditor *audit.Logger,
	clock election.Clock,
) *Service {
	if clock == nil {
		clock = election.RealClock()
	}
	return &Service{
		elections:  elections,
		voters:     voters,
		positions:  positions,
		candidates: candidates,
		live:       live,
		audit:      auditor,
		clock:      clock,
	}
}

// Submit validates and atomically records one voter's ballot. Exactly one
// of N concurrent submissions for the same voter succeeds; the rest get
// ErrAlreadyVoted and write nothing.
func (s *Service) Submit(ctx context.Context, req Request) (Receipt, error) {
	voterID := strings.TrimSpace(req.VoterID)
	if voterID == "" {
		return Receipt{}, validationf("voter id required")
	}

	current, err := s.elections.Current(ctx)
	if err != nil {
		return Receipt{}, err
	}

	voter, err := s.voters.ByVoterID(ctx, voterID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Receipt{}, ErrVoterNotFound
		}
		return Receipt{}, err
	}

	votedAt := s.clock.Now()
	votes, err := s.buildBallot(ctx, current.ID, voter.VoterID, votedAt, req)
	if err != nil {
		return Receipt{}, err
	}

	token, err := utils.GenerateReceiptToken()
	if err != nil {
		return Receipt{}, err
	}

	err = s.voters.ClaimBallot(ctx, store.Claim{
		VoterID:    voter.VoterID,
		ElectionID: current.ID,
		Votes:      votes,
		VotedAt:    votedAt,
		Token:      token,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyVoted) {
			return Receipt{}, ErrAlreadyVoted
		}
		return Receipt{}, err
	}

	if s.live != nil {
		s.live.PublishVotes(ctx, current.ID.Hex(), votes)
	}
	if s.audit != nil {
		s.audit.Log("vote.submit", voter.VoterID, fmt.Sprintf("ballot of %d selections recorded", len(votes)))
	}

	return Receipt{VoteToken: token, VotedAt: votedAt}, nil
}

// buildBallot turns selections and abstentions into vote rows carrying
// canonical hex ids only. Legacy name-encoded references are never written
// from here.
func (s *Service) buildBallot(ctx context.Context, electionID primitive.ObjectID, voterID string, votedAt time.Time, req Request) ([]mongo.Vote, error) {
	if len(req.Selections) == 0 && len(req.Abstentions) == 0 {
		return nil, validationf("ballot is empty")
	}

	positions, err := s.positions.Positions(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidates.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	positionsByID := make(map[string]mongo.Position, len(positions))
	for _, p := range positions {
		if p.Active {
			positionsByID[p.ID.Hex()] = p
		}
	}
	candidatesByID := make(map[string]mongo.Candidate, len(candidates))
	for _, c := range candidates {
		if c.Active {
			candidatesByID[c.ID.Hex()] = c
		}
	}

	votes := make([]mongo.Vote, 0, len(req.Selections)+len(req.Abstentions))
	perPosition := map[string]int32{}
	seen := map[string]bool{}

	for _, sel := range req.Selections {
		position, ok := positionsByID[sel.PositionID]
		if !ok {
			return nil, validationf("unknown position %q", sel.PositionID)
		}
		candidate, ok := candidatesByID[sel.CandidateID]
		if !ok {
			return nil, validationf("unknown candidate %q", sel.CandidateID)
		}
		if candidate.PositionID != position.ID {
			return nil, validationf("candidate %q does not run for position %q", candidate.Name, position.Title)
		}
		pair := sel.PositionID + ":" + sel.CandidateID
		if seen[pair] {
			return nil, validationf("duplicate selection for position %q", position.Title)
		}
		seen[pair] = true

		perPosition[sel.PositionID]++
		if perPosition[sel.PositionID] > maxSelections(position) {
			return nil, validationf("too many selections for position %q", position.Title)
		}

		votes = append(votes, mongo.Vote{
			ID:         primitive.NewObjectID(),
			ElectionID: electionID,
			Position:   position.ID.Hex(),
			Candidate:  candidate.ID.Hex(),
			Voter:      voterID,
			CreatedAt:  votedAt,
		})
	}

	for _, positionID := range req.Abstentions {
		position, ok := positionsByID[positionID]
		if !ok {
			return nil, validationf("unknown position %q", positionID)
		}
		if perPosition[positionID] > 0 {
			return nil, validationf("position %q has both selections and an abstention", position.Title)
		}
		if seen[positionID+":abstained"] {
			return nil, validationf("duplicate abstention for position %q", position.Title)
		}
		seen[positionID+":abstained"] = true

		votes = append(votes, mongo.Vote{
			ID:         primitive.NewObjectID(),
			ElectionID: electionID,
			Position:   position.ID.Hex(),
			Candidate:  mongo.AbstainedSentinel,
			Voter:      voterID,
			CreatedAt:  votedAt,
		})
	}

	return votes, nil
}

func maxSelections(p mongo.Position) int32 {
	if p.MaxSelections <= 0 {
		return 1
	}
	return p.MaxSelections
}
