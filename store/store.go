// Package store defines the persistence ports used by the election,
// voting, tally and reconcile services. The mongostore implementation is
// the system of record; memstore backs the tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyVoted = errors.New("already voted")
)

// Claim is the atomic unit of a ballot submission: the conditional
// has_voted flip, the vote rows and the voter receipt all commit together
// or not at all.
type Claim struct {
	VoterID    string
	ElectionID primitive.ObjectID
	Votes      []mongo.Vote
	VotedAt    time.Time
	Token      string
}

// VoterFilter narrows ListVoted. From/To bound voted_at inclusively.
type VoterFilter struct {
	Class string
	From  *time.Time
	To    *time.Time
}

type ElectionStore interface {
	Current(ctx context.Context) (*mongo.Election, error)
	ByID(ctx context.Context, id primitive.ObjectID) (*mongo.Election, error)
	// SetCurrent clears is_current everywhere and sets it on id as one
	// atomic operation. Another request never observes zero or two
	// current elections.
	SetCurrent(ctx context.Context, id primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool, status string) (*mongo.Election, error)
	SetResultsPublished(ctx context.Context, id primitive.ObjectID, published bool) (*mongo.Election, error)
}

type VoterStore interface {
	ByVoterID(ctx context.Context, voterID string) (*mongo.Voter, error)
	// ClaimBallot performs the whole claim atomically. The conditional
	// update on has_voted=false is the concurrency gate: a voter that is
	// already claimed yields ErrAlreadyVoted and writes nothing.
	ClaimBallot(ctx context.Context, claim Claim) error
	CountByElection(ctx context.Context, electionID primitive.ObjectID) (total, voted int64, err error)
	ListVoted(ctx context.Context, electionID primitive.ObjectID, filter VoterFilter) ([]mongo.Voter, error)
}

type VoteStore interface {
	ByElection(ctx context.Context, electionID primitive.ObjectID) ([]mongo.Vote, error)
}

type PositionStore interface {
	Positions(ctx context.Context) ([]mongo.Position, error)
}

type CandidateStore interface {
	Candidates(ctx context.Context) ([]mongo.Candidate, error)
}

type ActivityLogStore interface {
	InsertActivityLog(ctx context.Context, entry mongo.ActivityLog) error
}
