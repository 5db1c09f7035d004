// Package memstore is an in-memory implementation of the store ports with
// the same conditional-claim semantics as mongostore. It backs the service
// and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

type Store struct {
	mtx        sync.Mutex
	elections  []mongo.Election
	voters     map[string]*mongo.Voter
	positions  []mongo.Position
	candidates []mongo.Candidate
	votes      []mongo.Vote
	logs       []mongo.ActivityLog
}

func New() *Store {
	return &Store{voters: map[string]*mongo.Voter{}}
}

func (s *Store) SeedElection(e mongo.Election) mongo.Election {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	s.elections = append(s.elections, e)
	return e
}

func (s *Store) SeedVoter(v mongo.Voter) mongo.Voter {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	cp := v
	s.voters[v.VoterID] = &cp
	return v
}

func (s *Store) SeedPosition(p mongo.Position) mongo.Position {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	s.positions = append(s.positions, p)
	return p
}

func (s *Store) SeedCandidate(c mongo.Candidate) mongo.Candidate {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	s.candidates = append(s.candidates, c)
	return c
}

func (s *Store) SeedVote(v mongo.Vote) mongo.Vote {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	s.votes = append(s.votes, v)
	return v
}

func (s *Store) Current(ctx context.Context) (*mongo.Election, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.elections {
		if s.elections[i].IsCurrent {
			cp := s.elections[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (*mongo.Election, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.elections {
		if s.elections[i].ID == id {
			cp := s.elections[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetCurrent(ctx context.Context, id primitive.ObjectID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	target := -1
	for i := range s.elections {
		if s.elections[i].ID == id {
			target = i
			break
		}
	}
	if target == -1 {
		return store.ErrNotFound
	}
	for i := range s.elections {
		s.elections[i].IsCurrent = i == target
	}
	return nil
}

func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool, status string) (*mongo.Election, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.elections {
		if s.elections[i].ID == id {
			s.elections[i].IsActive = active
			s.elections[i].Status = status
			cp := s.elections[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetResultsPublished(ctx context.Context, id primitive.ObjectID, published bool) (*mongo.Election, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i := range s.elections {
		if s.elections[i].ID == id {
			s.elections[i].ResultsPublished = published
			cp := s.elections[i]
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ByVoterID(ctx context.Context, voterID string) (*mongo.Voter, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if v, ok := s.voters[voterID]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

// ClaimBallot mirrors the mongostore transaction: the claim matches only a
// voter with has_voted=false, and either everything lands or nothing does.
func (s *Store) ClaimBallot(ctx context.Context, claim store.Claim) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	v, ok := s.voters[claim.VoterID]
	if !ok || v.HasVoted {
		return store.ErrAlreadyVoted
	}
	v.HasVoted = true
	votedAt := claim.VotedAt
	v.VotedAt = &votedAt
	v.VoteToken = claim.Token
	s.votes = append(s.votes, claim.Votes...)
	for i := range s.elections {
		if s.elections[i].ID == claim.ElectionID {
			s.elections[i].VotedCount++
		}
	}
	return nil
}

func (s *Store) CountByElection(ctx context.Context, electionID primitive.ObjectID) (int64, int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var total, voted int64
	for _, v := range s.voters {
		if v.ElectionID != electionID {
			continue
		}
		total++
		if v.HasVoted {
			voted++
		}
	}
	return total, voted, nil
}

func (s *Store) ListVoted(ctx context.Context, electionID primitive.ObjectID, filter store.VoterFilter) ([]mongo.Voter, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	voters := []mongo.Voter{}
	for _, v := range s.voters {
		if v.ElectionID != electionID || !v.HasVoted {
			continue
		}
		if filter.Class != "" && v.Class != filter.Class {
			continue
		}
		if v.VotedAt != nil {
			if filter.From != nil && v.VotedAt.Before(*filter.From) {
				continue
			}
			if filter.To != nil && v.VotedAt.After(*filter.To) {
				continue
			}
		} else if filter.From != nil || filter.To != nil {
			continue
		}
		voters = append(voters, *v)
	}
	sort.SliceStable(voters, func(i, j int) bool {
		a, b := voters[i].VotedAt, voters[j].VotedAt
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.Before(*b)
	})
	return voters, nil
}

func (s *Store) ByElection(ctx context.Context, electionID primitive.ObjectID) ([]mongo.Vote, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	votes := []mongo.Vote{}
	for _, v := range s.votes {
		if v.ElectionID == electionID {
			votes = append(votes, v)
		}
	}
	return votes, nil
}

func (s *Store) Positions(ctx context.Context) ([]mongo.Position, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	positions := make([]mongo.Position, len(s.positions))
	copy(positions, s.positions)
	sort.SliceStable(positions, func(i, j int) bool { return positions[i].Priority < positions[j].Priority })
	return positions, nil
}

func (s *Store) Candidates(ctx context.Context) ([]mongo.Candidate, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	candidates := make([]mongo.Candidate, len(s.candidates))
	copy(candidates, s.candidates)
	return candidates, nil
}

func (s *Store) InsertActivityLog(ctx context.Context, entry mongo.ActivityLog) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.logs = append(s.logs, entry)
	return nil
}

// Elections returns a snapshot of all elections.
func (s *Store) Elections() []mongo.Election {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	elections := make([]mongo.Election, len(s.elections))
	copy(elections, s.elections)
	return elections
}

// ActivityLogs returns a snapshot of recorded log entries.
func (s *Store) ActivityLogs() []mongo.ActivityLog {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	logs := make([]mongo.ActivityLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}
