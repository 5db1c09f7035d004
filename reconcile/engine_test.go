package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store/memstore"
)

type fixture struct {
	store    *memstore.Store
	engine   *Engine
	election mongo.Election
	captain  mongo.Position
	prefect  mongo.Position
	alice    mongo.Candidate
	bob      mongo.Candidate
	carol    mongo.Candidate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ms := memstore.New()

	e := ms.SeedElection(mongo.Election{Title: "Prefect Election 2025", IsCurrent: true})
	captain := ms.SeedPosition(mongo.Position{Title: "School Captain", Priority: 1, Active: true})
	prefect := ms.SeedPosition(mongo.Position{Title: "Prefect", Priority: 2, Active: true})
	alice := ms.SeedCandidate(mongo.Candidate{Name: "Alice Mwangi", PositionID: captain.ID, Active: true})
	bob := ms.SeedCandidate(mongo.Candidate{Name: "Bob Otieno", PositionID: captain.ID, Active: true})
	carol := ms.SeedCandidate(mongo.Candidate{Name: "Carol Wanjiru", PositionID: prefect.ID, Active: true})

	return &fixture{
		store:    ms,
		engine:   NewEngine(ms, ms, ms, ms),
		election: e,
		captain:  captain,
		prefect:  prefect,
		alice:    alice,
		bob:      bob,
		carol:    carol,
	}
}

func (f *fixture) voter(id, name, class string, votedAt time.Time) {
	f.store.SeedVoter(mongo.Voter{
		VoterID:    id,
		Name:       name,
		Class:      class,
		ElectionID: f.election.ID,
		HasVoted:   true,
		VotedAt:    &votedAt,
	})
}

func (f *fixture) vote(voter, position, candidate string) {
	f.store.SeedVote(mongo.Vote{
		ElectionID: f.election.ID,
		Position:   position,
		Candidate:  candidate,
		Voter:      voter,
	})
}

func TestDetailedAnalysisReconstructsBallots(t *testing.T) {
	f := newFixture(t)
	votedAt := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	f.voter("STU-001", "Dan Kiprop", "4B", votedAt)
	f.vote("STU-001", f.captain.ID.Hex(), f.alice.ID.Hex())
	f.vote("STU-001", f.prefect.ID.Hex(), mongo.AbstainedSentinel)

	ballots, err := f.engine.DetailedAnalysis(context.Background(), f.election.ID, Filter{})
	if err != nil {
		t.Fatalf("DetailedAnalysis: %v", err)
	}
	if len(ballots) != 1 {
		t.Fatalf("ballots = %d, want 1", len(ballots))
	}

	b := ballots[0]
	if b.VoterID != "STU-001" || b.Name != "Dan Kiprop" {
		t.Errorf("ballot identity = %+v", b)
	}
	if b.VotedFor["School Captain"] != "Alice Mwangi" {
		t.Errorf("captain vote = %q", b.VotedFor["School Captain"])
	}
	if b.VotedFor["Prefect"] != mongo.AbstainedSentinel {
		t.Errorf("prefect vote = %q, want abstained", b.VotedFor["Prefect"])
	}
}

func TestDetailedAnalysisEmptyResult(t *testing.T) {
	f := newFixture(t)

	ballots, err := f.engine.DetailedAnalysis(context.Background(), f.election.ID, Filter{})
	if err != nil {
		t.Fatalf("DetailedAnalysis: %v", err)
	}
	if ballots == nil {
		t.Fatal("ballots is nil, want empty slice")
	}
	if len(ballots) != 0 {
		t.Errorf("ballots = %d, want 0", len(ballots))
	}
}

func TestDetailedAnalysisPlaceholderKeepsSiblings(t *testing.T) {
	f := newFixture(t)
	f.voter("STU-001", "Dan Kiprop", "4B", time.Now())
	f.vote("STU-001", f.captain.ID.Hex(), f.alice.ID.Hex())
	f.vote("STU-001", f.captain.ID.Hex(), "aaaaaaaabbbbbbbbcccccccc")

	ballots, err := f.engine.DetailedAnalysis(context.Background(), f.election.ID, Filter{})
	if err != nil {
		t.Fatalf("DetailedAnalysis: %v", err)
	}
	if len(ballots) != 1 {
		t.Fatalf("ballots = %d, want 1", len(ballots))
	}

	got := ballots[0].VotedFor["School Captain"]
	want := "Alice Mwangi, Unknown (id prefix aaaaaaaa…)"
	if got != want {
		t.Errorf("captain votes = %q, want %q", got, want)
	}
}

func TestDetailedAnalysisMultiSelectionJoin(t *testing.T) {
	f := newFixture(t)
	f.voter("STU-001", "Dan Kiprop", "4B", time.Now())
	f.vote("STU-001", f.captain.ID.Hex(), f.alice.ID.Hex())
	f.vote("STU-001", f.captain.ID.Hex(), f.bob.ID.Hex())

	ballots, err := f.engine.DetailedAnalysis(context.Background(), f.election.ID, Filter{})
	if err != nil {
		t.Fatalf("DetailedAnalysis: %v", err)
	}

	got := ballots[0].VotedFor["School Captain"]
	if got != "Alice Mwangi, Bob Otieno" {
		t.Errorf("joined votes = %q", got)
	}
}

func TestDetailedAnalysisFilters(t *testing.T) {
	f := newFixture(t)
	morning := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	afternoon := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	f.voter("STU-001", "Dan Kiprop", "4B", morning)
	f.voter("STU-002", "Faith Njeri", "3A", afternoon)
	f.vote("STU-001", f.captain.ID.Hex(), f.alice.ID.Hex())
	f.vote("STU-002", f.captain.ID.Hex(), f.bob.ID.Hex())
	f.vote("STU-002", f.prefect.ID.Hex(), f.carol.ID.Hex())

	ctx := context.Background()

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"search by name", Filter{Search: "faith"}, []string{"STU-002"}},
		{"search by voter id", Filter{Search: "stu-001"}, []string{"STU-001"}},
		{"class", Filter{Class: "4B"}, []string{"STU-001"}},
		{"position", Filter{Position: "Prefect"}, []string{"STU-002"}},
		{"candidate", Filter{Candidate: "Alice Mwangi"}, []string{"STU-001"}},
		{"candidate case-insensitive", Filter{Candidate: "bob otieno"}, []string{"STU-002"}},
		{"from bound", Filter{From: &afternoon}, []string{"STU-002"}},
		{"to bound", Filter{To: &morning}, []string{"STU-001"}},
		{"no match", Filter{Search: "nobody"}, []string{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ballots, err := f.engine.DetailedAnalysis(ctx, f.election.ID, c.filter)
			if err != nil {
				t.Fatalf("DetailedAnalysis: %v", err)
			}
			ids := make([]string, 0, len(ballots))
			for _, b := range ballots {
				ids = append(ids, b.VoterID)
			}
			if len(ids) != len(c.want) {
				t.Fatalf("voters = %v, want %v", ids, c.want)
			}
			for i := range ids {
				if ids[i] != c.want[i] {
					t.Errorf("voters = %v, want %v", ids, c.want)
				}
			}
		})
	}
}
