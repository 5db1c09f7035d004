package voting

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/campuselect/api.vote.campuselect.dev/election"
	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store/memstore"
)

var tokenPattern = regexp.MustCompile(`^[0-9A-F]{6}$`)

type fakeClock struct {
	now time.Time
}

func (f fakeClock) Now() time.Time { return f.now }

type fixture struct {
	store      *memstore.Store
	service    *Service
	election   mongo.Election
	captain    mongo.Position
	prefect    mongo.Position
	alice      mongo.Candidate
	bob        mongo.Candidate
	carol      mongo.Candidate
	votingTime time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()

	e := ms.SeedElection(mongo.Election{
		Title:     "Prefect Election 2025",
		Date:      time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		IsCurrent: true,
		IsActive:  true,
		Status:    election.StatusActive,
	})
	captain := ms.SeedPosition(mongo.Position{Title: "School Captain", Priority: 1, Active: true})
	prefect := ms.SeedPosition(mongo.Position{Title: "Prefect", Priority: 2, MaxSelections: 2, Active: true})
	alice := ms.SeedCandidate(mongo.Candidate{Name: "Alice Mwangi", PositionID: captain.ID, Active: true})
	bob := ms.SeedCandidate(mongo.Candidate{Name: "Bob Otieno", PositionID: captain.ID, Active: true})
	carol := ms.SeedCandidate(mongo.Candidate{Name: "Carol Wanjiru", PositionID: prefect.ID, Active: true})
	ms.SeedVoter(mongo.Voter{VoterID: "STU-001", Name: "Dan Kiprop", Class: "4B", ElectionID: e.ID})

	clock := fakeClock{now: time.Date(2025, time.March, 10, 10, 30, 0, 0, time.UTC)}
	manager := election.New(ms, nil, clock)
	service := NewService(manager, ms, ms, ms, nil, nil, clock)

	return &fixture{
		store:      ms,
		service:    service,
		election:   e,
		captain:    captain,
		prefect:    prefect,
		alice:      alice,
		bob:        bob,
		carol:      carol,
		votingTime: clock.now,
	}
}

func TestSubmitRecordsBallot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.service.Submit(ctx, Request{
		VoterID: "STU-001",
		Selections: []Selection{
			{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()},
			{PositionID: f.prefect.ID.Hex(), CandidateID: f.carol.ID.Hex()},
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !tokenPattern.MatchString(receipt.VoteToken) {
		t.Errorf("vote token %q does not match %v", receipt.VoteToken, tokenPattern)
	}
	if !receipt.VotedAt.Equal(f.votingTime) {
		t.Errorf("votedAt = %v, want %v", receipt.VotedAt, f.votingTime)
	}

	voter, err := f.store.ByVoterID(ctx, "STU-001")
	if err != nil {
		t.Fatalf("ByVoterID: %v", err)
	}
	if !voter.HasVoted || voter.VoteToken != receipt.VoteToken {
		t.Errorf("voter not claimed: hasVoted=%v token=%q", voter.HasVoted, voter.VoteToken)
	}

	votes, err := f.store.ByElection(ctx, f.election.ID)
	if err != nil {
		t.Fatalf("ByElection: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("vote rows = %d, want 2", len(votes))
	}
	for _, v := range votes {
		if v.Candidate == mongo.AbstainedSentinel {
			continue
		}
		if v.Position != f.captain.ID.Hex() && v.Position != f.prefect.ID.Hex() {
			t.Errorf("vote carries non-canonical position reference %q", v.Position)
		}
	}
}

func TestSubmitTwiceReturnsAlreadyVoted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := Request{
		VoterID:    "STU-001",
		Selections: []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()}},
	}

	if _, err := f.service.Submit(ctx, req); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if _, err := f.service.Submit(ctx, req); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("second Submit err = %v, want ErrAlreadyVoted", err)
	}

	votes, _ := f.store.ByElection(ctx, f.election.ID)
	if len(votes) != 1 {
		t.Errorf("vote rows = %d after rejected resubmission, want 1", len(votes))
	}
}

func TestSubmitWithoutCurrentElection(t *testing.T) {
	ms := memstore.New()
	ms.SeedVoter(mongo.Voter{VoterID: "STU-001", Name: "Dan Kiprop"})
	service := NewService(election.New(ms, nil, nil), ms, ms, ms, nil, nil, nil)

	_, err := service.Submit(context.Background(), Request{
		VoterID:    "STU-001",
		Selections: []Selection{{PositionID: "ffffffffffffffffffffffff", CandidateID: "ffffffffffffffffffffffff"}},
	})
	if !errors.Is(err, ErrNoElection) {
		t.Fatalf("err = %v, want ErrNoElection", err)
	}

	voter, _ := ms.ByVoterID(context.Background(), "STU-001")
	if voter.HasVoted {
		t.Error("voter mutated by rejected submission")
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  Request
	}{
		{"missing voter id", Request{VoterID: "   "}},
		{"empty ballot", Request{VoterID: "STU-001"}},
		{"unknown position", Request{VoterID: "STU-001", Selections: []Selection{
			{PositionID: "ffffffffffffffffffffffff", CandidateID: f.alice.ID.Hex()},
		}}},
		{"unknown candidate", Request{VoterID: "STU-001", Selections: []Selection{
			{PositionID: f.captain.ID.Hex(), CandidateID: "ffffffffffffffffffffffff"},
		}}},
		{"candidate from another position", Request{VoterID: "STU-001", Selections: []Selection{
			{PositionID: f.captain.ID.Hex(), CandidateID: f.carol.ID.Hex()},
		}}},
		{"duplicate selection", Request{VoterID: "STU-001", Selections: []Selection{
			{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()},
			{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()},
		}}},
		{"too many selections", Request{VoterID: "STU-001", Selections: []Selection{
			{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()},
			{PositionID: f.captain.ID.Hex(), CandidateID: f.bob.ID.Hex()},
		}}},
		{"abstention alongside selection", Request{
			VoterID:     "STU-001",
			Selections:  []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()}},
			Abstentions: []string{f.captain.ID.Hex()},
		}},
		{"abstention for unknown position", Request{VoterID: "STU-001", Abstentions: []string{"ffffffffffffffffffffffff"}}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.service.Submit(ctx, c.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			votes, _ := f.store.ByElection(ctx, f.election.ID)
			if len(votes) != 0 {
				t.Errorf("vote rows = %d after rejected ballot, want 0", len(votes))
			}
		})
	}
}

func TestSubmitUnknownVoter(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), Request{
		VoterID:    "STU-404",
		Selections: []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()}},
	})
	if !errors.Is(err, ErrVoterNotFound) {
		t.Fatalf("err = %v, want ErrVoterNotFound", err)
	}
}

func TestSubmitRecordsAbstention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Submit(ctx, Request{
		VoterID:     "STU-001",
		Selections:  []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: f.bob.ID.Hex()}},
		Abstentions: []string{f.prefect.ID.Hex()},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	votes, _ := f.store.ByElection(ctx, f.election.ID)
	if len(votes) != 2 {
		t.Fatalf("vote rows = %d, want 2", len(votes))
	}
	abstained := 0
	for _, v := range votes {
		if v.Position == f.prefect.ID.Hex() {
			if v.Candidate != mongo.AbstainedSentinel {
				t.Errorf("abstention recorded as %q", v.Candidate)
			}
			abstained++
		}
	}
	if abstained != 1 {
		t.Errorf("abstention rows = %d, want 1", abstained)
	}
}

func TestSubmitMultiSelectionPosition(t *testing.T) {
	f := newFixture(t)
	dave := f.store.SeedCandidate(mongo.Candidate{Name: "Dave Njoroge", PositionID: f.prefect.ID, Active: true})

	_, err := f.service.Submit(context.Background(), Request{
		VoterID: "STU-001",
		Selections: []Selection{
			{PositionID: f.prefect.ID.Hex(), CandidateID: f.carol.ID.Hex()},
			{PositionID: f.prefect.ID.Hex(), CandidateID: dave.ID.Hex()},
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	votes, _ := f.store.ByElection(context.Background(), f.election.ID)
	if len(votes) != 2 {
		t.Errorf("vote rows = %d, want 2", len(votes))
	}
}

func TestSubmitIgnoresInactiveEntries(t *testing.T) {
	f := newFixture(t)
	retired := f.store.SeedCandidate(mongo.Candidate{Name: "Eve Achieng", PositionID: f.captain.ID, Active: false})

	_, err := f.service.Submit(context.Background(), Request{
		VoterID:    "STU-001",
		Selections: []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: retired.ID.Hex()}},
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError for inactive candidate", err)
	}
}

func TestConcurrentSubmissionsClaimOnce(t *testing.T) {
	f := newFixture(t)
	req := Request{
		VoterID:    "STU-001",
		Selections: []Selection{{PositionID: f.captain.ID.Hex(), CandidateID: f.alice.ID.Hex()}},
	}

	const workers = 16
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Submit(context.Background(), req)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyVoted):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful submissions = %d, want exactly 1", succeeded)
	}

	votes, _ := f.store.ByElection(context.Background(), f.election.ID)
	if len(votes) != 1 {
		t.Errorf("vote rows = %d, want 1", len(votes))
	}
}
