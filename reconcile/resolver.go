// Package reconcile reconstructs human-readable ballots from vote rows
// whose position/candidate references are inconsistently encoded. New
// writes are canonical ids, so the fallback chain below is a read-side
// compatibility layer for pre-existing rows, not an ongoing pattern.
package reconcile

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/campuselect/api.vote.campuselect.dev/mongo"
	"github.com/campuselect/api.vote.campuselect.dev/utils"
)

// UnknownPosition is the placeholder for a position reference no lookup
// strategy could resolve.
const UnknownPosition = "Unknown Position"

// Resolver maps stored position/candidate references to display names.
type Resolver struct {
	positionByID   map[string]string
	positionByName map[string]string
	positionIDs    map[string]string // folded name -> id, for filters
	candidateByID  map[string]string
	candidateName  map[string]string
	soleCandidate  map[string]string // position id -> only candidate name
}

func NewResolver(positions []mongo.Position, candidates []mongo.Candidate) *Resolver {
	r := &Resolver{
		positionByID:   map[string]string{},
		positionByName: map[string]string{},
		positionIDs:    map[string]string{},
		candidateByID:  map[string]string{},
		candidateName:  map[string]string{},
		soleCandidate:  map[string]string{},
	}
	for _, p := range positions {
		id := p.ID.Hex()
		r.positionByID[id] = p.Title
		r.positionByName[fold(p.Title)] = p.Title
		r.positionIDs[fold(p.Title)] = id
	}
	perPosition := map[string]int{}
	for _, c := range candidates {
		r.candidateByID[c.ID.Hex()] = c.Name
		r.candidateName[fold(c.Name)] = c.Name
		positionID := c.PositionID.Hex()
		perPosition[positionID]++
		if perPosition[positionID] == 1 {
			r.soleCandidate[positionID] = c.Name
		} else {
			delete(r.soleCandidate, positionID)
		}
	}
	return r
}

// Position resolves a stored position reference to its display name.
func (r *Resolver) Position(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return UnknownPosition
	}
	if name, ok := r.positionByID[strings.ToLower(ref)]; ok {
		return name
	}
	if name, ok := r.positionByName[fold(ref)]; ok {
		return name
	}
	if utils.IsHexID(ref) {
		log.Warnf("reconcile, unmapped position id %s", ref)
		return ref
	}
	return UnknownPosition
}

// Candidate resolves a stored candidate reference, given the raw position
// reference of the same vote row for the single-candidate shortcut.
func (r *Resolver) Candidate(positionRef, ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.Trim(ref, `"'`)
	if strings.EqualFold(ref, mongo.AbstainedSentinel) {
		return mongo.AbstainedSentinel
	}
	if ref == "" {
		return "Unknown ()"
	}
	if name, ok := r.candidateByID[strings.ToLower(ref)]; ok {
		return name
	}
	if name, ok := r.candidateName[fold(ref)]; ok {
		return name
	}
	if name, ok := r.soleCandidate[r.positionID(positionRef)]; ok {
		log.Warnf("reconcile, candidate %q assumed sole runner for position %q", ref, positionRef)
		return name
	}
	if utils.IsHexID(ref) {
		return fmt.Sprintf("Unknown (id prefix %s…)", ref[:8])
	}
	return fmt.Sprintf("Unknown (%s)", ref)
}

// positionID maps a raw position reference back to a canonical id, if any.
func (r *Resolver) positionID(ref string) string {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if _, ok := r.positionByID[lower]; ok {
		return lower
	}
	if id, ok := r.positionIDs[fold(ref)]; ok {
		return id
	}
	return ""
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
