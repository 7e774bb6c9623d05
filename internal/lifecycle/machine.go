package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartplate/redistribution/internal/storage"
)

var (
	ErrUnverifiedNGO          = errors.New("ngo is not verified")
	ErrInvalidMatch           = errors.New("candidate is not an eligible match")
	ErrMissingProof           = errors.New("completion requires a proof reference")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnknownEvent           = errors.New("unknown lifecycle event")
)

type Event string

const (
	EventCreate        Event = "create"
	EventApprove       Event = "approve"
	EventMatch         Event = "match"
	EventStartDelivery Event = "start_delivery"
	EventComplete      Event = "complete"
	EventReject        Event = "reject"
	EventExpire        Event = "expire"
)

// ParseEvent accepts the events callers may submit. Create and expire are
// driven by the service itself.
func ParseEvent(s string) (Event, error) {
	switch e := Event(strings.ToLower(strings.TrimSpace(s))); e {
	case EventApprove, EventMatch, EventStartDelivery, EventComplete, EventReject:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEvent, s)
	}
}

type Payload struct {
	CandidateID string `json:"candidate_id,omitempty"`
	Proof       string `json:"proof,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Input carries everything a transition needs besides the request itself.
type Input struct {
	Event       Event
	Payload     Payload
	Now         time.Time
	NGOVerified bool
	Eligible    []storage.Match
}

// allowedFrom lists the source statuses of each caller-driven event.
var allowedFrom = map[Event][]storage.Status{
	EventApprove:       {storage.StatusPending},
	EventMatch:         {storage.StatusApproved, storage.StatusMatched},
	EventStartDelivery: {storage.StatusMatched},
	EventComplete:      {storage.StatusInProgress},
	EventReject:        {storage.StatusPending, storage.StatusApproved},
}

// Due reports whether req has passed its expiry while still open.
func Due(req storage.Request, now time.Time) bool {
	return !req.Status.Terminal() && now.After(req.ExpiresAt)
}

// Expire moves an overdue request to expired. ok is false when nothing changed.
func Expire(req storage.Request, now time.Time) (next storage.Request, entry storage.HistoryEntry, ok bool) {
	if !Due(req, now) {
		return req, storage.HistoryEntry{}, false
	}
	req.Status = storage.StatusExpired
	req.UpdatedAt = now
	return req, historyEntry(req, EventExpire, "", "", now), true
}

// Apply computes the request that results from in.Event. req is passed by
// value so a failed transition never leaks a partial change to the caller.
func Apply(req storage.Request, in Input) (storage.Request, storage.HistoryEntry, error) {
	sources, ok := allowedFrom[in.Event]
	if !ok {
		return req, storage.HistoryEntry{}, fmt.Errorf("%w: %q", ErrUnknownEvent, in.Event)
	}
	if Due(req, in.Now) {
		return req, storage.HistoryEntry{}, fmt.Errorf("%w: request %s has expired", ErrInvalidStateTransition, req.ID)
	}
	if !statusIn(req.Status, sources) {
		return req, storage.HistoryEntry{}, fmt.Errorf("%w: cannot %s a request in status %s", ErrInvalidStateTransition, in.Event, req.Status)
	}

	next := req
	var candidateID, note string

	switch in.Event {
	case EventApprove:
		if !in.NGOVerified {
			return req, storage.HistoryEntry{}, fmt.Errorf("%w: ngo %s", ErrUnverifiedNGO, req.NGOID)
		}
		next.Status = storage.StatusApproved

	case EventMatch:
		match, found := findMatch(in.Eligible, in.Payload.CandidateID)
		if !found {
			return req, storage.HistoryEntry{}, fmt.Errorf("%w: candidate %q for request %s", ErrInvalidMatch, in.Payload.CandidateID, req.ID)
		}
		if req.SlotFilled(match.Role) {
			return req, storage.HistoryEntry{}, fmt.Errorf("%w: %s already matched for request %s", ErrInvalidMatch, match.Role, req.ID)
		}
		switch match.Role {
		case storage.RoleDonor:
			next.MatchedDonorID = match.CandidateID
		case storage.RoleVolunteer:
			next.MatchedVolunteerID = match.CandidateID
		default:
			return req, storage.HistoryEntry{}, fmt.Errorf("%w: candidate role %q", ErrInvalidMatch, match.Role)
		}
		next.Status = storage.StatusMatched
		candidateID = match.CandidateID

	case EventStartDelivery:
		if !req.SlotFilled(storage.RoleDonor) || !req.SlotFilled(storage.RoleVolunteer) {
			return req, storage.HistoryEntry{}, fmt.Errorf("%w: delivery needs both a donor and a volunteer", ErrInvalidStateTransition)
		}
		next.Status = storage.StatusInProgress

	case EventComplete:
		proof := strings.TrimSpace(in.Payload.Proof)
		if proof == "" {
			return req, storage.HistoryEntry{}, ErrMissingProof
		}
		next.ProofRef = proof
		next.Status = storage.StatusCompleted
		note = proof

	case EventReject:
		next.RejectReason = strings.TrimSpace(in.Payload.Reason)
		next.Status = storage.StatusRejected
		note = next.RejectReason
	}

	next.UpdatedAt = in.Now
	return next, historyEntry(next, in.Event, candidateID, note, in.Now), nil
}

func historyEntry(req storage.Request, event Event, candidateID, note string, now time.Time) storage.HistoryEntry {
	return storage.HistoryEntry{
		RequestID:   req.ID,
		Status:      req.Status,
		Event:       string(event),
		CandidateID: candidateID,
		Note:        note,
		ChangedAt:   now,
	}
}

func statusIn(s storage.Status, set []storage.Status) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func findMatch(matches []storage.Match, candidateID string) (storage.Match, bool) {
	if candidateID == "" {
		return storage.Match{}, false
	}
	for _, m := range matches {
		if m.CandidateID == candidateID {
			return m, true
		}
	}
	return storage.Match{}, false
}
