// Package election owns the single current election: its voting window,
// its active/published flags and the status snapshot served to clients.
package election

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/store"
)

const (
	StatusNotStarted = "not-started"
	StatusActive     = "active"
	StatusEnded      = "ended"

	defaultStartTime = "08:00"
	defaultEndTime   = "16:00"
)

var ErrNoElection = errors.New("no active election found")

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func RealClock() Clock { return realClock{} }

// StatusSnapshot always carries resolved window fields, so consumers never
// null-check startDate/endDate/startTime/endTime.
type StatusSnapshot struct {
	ElectionID       string    `json:"electionId,omitempty"`
	Title            string    `json:"title"`
	Date             time.Time `json:"date"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
	StartTime        string    `json:"startTime"`
	EndTime          string    `json:"endTime"`
	IsActive         bool      `json:"isActive"`
	Status           string    `json:"status"`
	ResultsPublished bool      `json:"resultsPublished"`
	NoCurrent        bool      `json:"-"`
}

type Manager struct {
	elections store.ElectionStore
	cache     Cache
	clock     Clock
}

// New builds a Manager. cache may be nil (no snapshot caching), clock may
// be nil (wall clock).
func New(elections store.ElectionStore, cache Cache, clock Clock) *Manager {
	if clock == nil {
		clock = realClock{}
	}
	return &Manager{elections: elections, cache: cache, clock: clock}
}

// Status returns the current election snapshot, or the default inactive
// snapshot (NoCurrent set) when no election is current. Snapshots are
// cached for a short interval as a load-shedding measure only.
func (m *Manager) Status(ctx context.Context) (StatusSnapshot, error) {
	if m.cache != nil {
		if snapshot, ok := m.cache.Get(ctx); ok {
			if snapshot == nil {
				return DefaultSnapshot(), nil
			}
			// Status can drift inside the cache window as the clock
			// crosses the voting window edge.
			snapshot.Status = deriveStatus(snapshot.IsActive, snapshot.EndDate, snapshot.EndTime, m.clock.Now())
			return *snapshot, nil
		}
	}

	current, err := m.elections.Current(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if m.cache != nil {
				m.cache.SetMissing(ctx)
			}
			return DefaultSnapshot(), nil
		}
		return StatusSnapshot{}, err
	}

	snapshot := Snapshot(current, m.clock.Now())
	if m.cache != nil {
		m.cache.Set(ctx, snapshot)
	}
	return snapshot, nil
}

// Current resolves the current election or ErrNoElection.
func (m *Manager) Current(ctx context.Context) (*mongo.Election, error) {
	current, err := m.elections.Current(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoElection
		}
		return nil, err
	}
	return current, nil
}

// ToggleActive flips is_active on the current election and reconciles the
// persisted status with it.
func (m *Manager) ToggleActive(ctx context.Context) (*mongo.Election, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}

	active := !current.IsActive
	status := StatusNotStarted
	if active {
		status = StatusActive
	}

	updated, err := m.elections.SetActive(ctx, current.ID, active, status)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx)
	return updated, nil
}

// SetCurrent makes the target election the single current one.
func (m *Manager) SetCurrent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.ErrNotFound
	}
	if err := m.elections.SetCurrent(ctx, oid); err != nil {
		return err
	}
	m.invalidate(ctx)
	return nil
}

// PublishResults sets the results_published flag on the current election.
// Pure flag flip, tallies are untouched.
func (m *Manager) PublishResults(ctx context.Context, published bool) (*mongo.Election, error) {
	current, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := m.elections.SetResultsPublished(ctx, current.ID, published)
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx)
	return updated, nil
}

func (m *Manager) invalidate(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx); err != nil {
		log.Errorf("redis, err=%v", err)
	}
}

// DefaultSnapshot is what consumers get when no election is current.
func DefaultSnapshot() StatusSnapshot {
	return StatusSnapshot{
		Status:    StatusNotStarted,
		StartTime: defaultStartTime,
		EndTime:   defaultEndTime,
		NoCurrent: true,
	}
}

// Snapshot resolves the election's window and derives its status at now.
func Snapshot(e *mongo.Election, now time.Time) StatusSnapshot {
	startDate, endDate := e.Date, e.Date
	if e.StartDate != nil {
		startDate = *e.StartDate
	}
	if e.EndDate != nil {
		endDate = *e.EndDate
	}
	startTime, endTime := e.StartTime, e.EndTime
	if startTime == "" {
		startTime = defaultStartTime
	}
	if endTime == "" {
		endTime = defaultEndTime
	}

	return StatusSnapshot{
		ElectionID:       e.ID.Hex(),
		Title:            e.Title,
		Date:             e.Date,
		StartDate:        startDate,
		EndDate:          endDate,
		StartTime:        startTime,
		EndTime:          endTime,
		IsActive:         e.IsActive,
		Status:           deriveStatus(e.IsActive, endDate, endTime, now),
		ResultsPublished: e.ResultsPublished,
	}
}

// deriveStatus is a pure function of the election fields and the clock.
// Active elections are "active"; inactive ones are "not-started" until the
// resolved end of window has passed, then "ended".
func deriveStatus(isActive bool, endDate time.Time, endTime string, now time.Time) string {
	if isActive {
		return StatusActive
	}
	if !endDate.IsZero() && now.After(windowEdge(endDate, endTime)) {
		return StatusEnded
	}
	return StatusNotStarted
}

// windowEdge combines a date with an "HH:MM" time of day.
func windowEdge(date time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		t, _ = time.Parse("15:04", defaultEndTime)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}
