package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AbstainedSentinel is the canonical candidate value recorded when a voter
// explicitly abstains for a position. Matched case-insensitively on read.
const AbstainedSentinel = "Abstained"

type Election struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title            string             `json:"title" bson:"title"`
	Date             time.Time          `json:"date" bson:"date"`
	StartDate        *time.Time         `json:"start_date" bson:"start_date,omitempty"`
	EndDate          *time.Time         `json:"end_date" bson:"end_date,omitempty"`
	StartTime        string             `json:"start_time" bson:"start_time,omitempty"`
	EndTime          string             `json:"end_time" bson:"end_time,omitempty"`
	IsCurrent        bool               `json:"is_current" bson:"is_current"`
	IsActive         bool               `json:"is_active" bson:"is_active"`
	Status           string             `json:"status" bson:"status"`
	ResultsPublished bool               `json:"results_published" bson:"results_published"`
	TotalVoters      int32              `json:"total_voters" bson:"total_voters"`
	VotedCount       int32              `json:"voted_count" bson:"voted_count"`
}

type Voter struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VoterID    string             `json:"voter_id" bson:"voter_id"`
	Name       string             `json:"name" bson:"name"`
	Class      string             `json:"class" bson:"class"`
	Year       string             `json:"year" bson:"year"`
	House      string             `json:"house" bson:"house"`
	HasVoted   bool               `json:"has_voted" bson:"has_voted"`
	VotedAt    *time.Time         `json:"voted_at" bson:"voted_at,omitempty"`
	VoteToken  string             `json:"vote_token" bson:"vote_token,omitempty"`
	ElectionID primitive.ObjectID `json:"election_id" bson:"election_id,omitempty"`
}

type Position struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title         string             `json:"title" bson:"title"`
	Priority      int32              `json:"priority" bson:"priority"`
	MaxSelections int32              `json:"max_selections" bson:"max_selections"`
	Active        bool               `json:"active" bson:"active"`
}

type Candidate struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name       string             `json:"name" bson:"name"`
	PositionID primitive.ObjectID `json:"position_id" bson:"position_id"`
	Active     bool               `json:"active" bson:"active"`
	Category   string             `json:"category" bson:"category,omitempty"`
}

// Vote references positions and candidates as strings. New writes always
// store the canonical hex id (or AbstainedSentinel); legacy rows may hold
// denormalized names or malformed ids and are resolved on read.
type Vote struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ElectionID primitive.ObjectID `json:"election_id" bson:"election_id"`
	Position   string             `json:"position" bson:"position"`
	Candidate  string             `json:"candidate" bson:"candidate"`
	Voter      string             `json:"voter" bson:"voter"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

type ActivityLog struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	CorrelationID string             `json:"correlation_id" bson:"correlation_id"`
	Action        string             `json:"action" bson:"action"`
	Actor         string             `json:"actor" bson:"actor"`
	Details       string             `json:"details" bson:"details,omitempty"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
}
