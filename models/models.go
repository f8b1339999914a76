package models

import (
	"errors"
	"time"
)

// ErrMemberNotFound is returned when a member id is unknown to the store.
var ErrMemberNotFound = errors.New("member not found")

// ErrRunNotFound is returned when a scoring run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Member is a legislator. Immutable once ingested except for party-label
// corrections applied by the ingestion collaborator.
type Member struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Party        string     `json:"party,omitempty"` // empty for independents
	Jurisdiction string     `json:"jurisdiction"`
	ActiveFrom   time.Time  `json:"active_from"`
	ActiveTo     *time.Time `json:"active_to,omitempty"` // nil while serving
}

// Document is a bill text or floor-speech transcript. Read-only to the engine.
type Document struct {
	ID         string    `json:"id"`
	Sponsor    string    `json:"sponsor"` // primary sponsor member id
	CoSponsors []string  `json:"cosponsors,omitempty"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Topics     []string  `json:"topics,omitempty"`
}

// VoteValue is a single member's position on a roll call.
type VoteValue string

const (
	VoteYea     VoteValue = "yea"
	VoteNay     VoteValue = "nay"
	VoteAbstain VoteValue = "abstain"
	VoteAbsent  VoteValue = "absent"
)

// Valid reports whether the vote value is one of the four known positions.
func (v VoteValue) Valid() bool {
	switch v {
	case VoteYea, VoteNay, VoteAbstain, VoteAbsent:
		return true
	}
	return false
}

// Cast reports whether the value counts as an actual yea/nay ballot.
func (v VoteValue) Cast() bool { return v == VoteYea || v == VoteNay }

// Vote is one roll call with every recorded ballot.
type Vote struct {
	ID        string               `json:"id"`
	BillID    string               `json:"bill_id,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Ballots   map[string]VoteValue `json:"ballots"` // member id -> value
}

// Window is a bounded [Start, End) time range records are aggregated over.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the half-open window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool { return w.End.After(w.Start) }

// Batch is the in-memory record set one scoring run operates on. All fields
// are immutable inputs to the engine.
type Batch struct {
	Members   []Member
	Documents []Document
	Votes     []Vote
}

// SignalScore is one sub-scorer's estimate for a member on an axis.
type SignalScore struct {
	Value      float64 `json:"value"`      // [-1, 1]
	Confidence float64 `json:"confidence"` // [0, 1]
}

// AlignmentScore is the engine's sole output artifact. A rerun produces a new
// version keyed by (member, axis, window, run, computed-at); rows are never
// mutated in place.
type AlignmentScore struct {
	MemberID   string      `json:"member_id"`
	Axis       string      `json:"axis"`
	Window     Window      `json:"window"`
	Value      float64     `json:"value"`      // [-1, 1]
	Confidence float64     `json:"confidence"` // [0, 1]
	Label      string      `json:"label"`      // left / center / right
	Text       SignalScore `json:"text"`
	Coalition  SignalScore `json:"coalition"`
	Vote       SignalScore `json:"vote"`
	RunID      string      `json:"run_id"`
	ComputedAt time.Time   `json:"computed_at"`
}

// AxisReferences anchors relative scoring for one axis: known positions for
// the coalition scorer and reference blocs for the vote scorer. Supplied by
// the calling collaborator, never inferred by the engine.
type AxisReferences struct {
	Axis    string             `json:"axis"`
	Anchors map[string]float64 `json:"anchors"` // member id -> position in [-1,1]
	PoleA   []string           `json:"pole_a"`  // positive pole member ids
	PoleB   []string           `json:"pole_b"`  // negative pole member ids
}

// Run records one engine invocation for bookkeeping and score versioning.
type Run struct {
	ID         string     `json:"id"`
	Window     Window     `json:"window"`
	Status     string     `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Run statuses persisted by the store.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)
