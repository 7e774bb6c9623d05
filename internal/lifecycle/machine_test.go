package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartplate/redistribution/internal/geo"
	"github.com/smartplate/redistribution/internal/storage"
)

var t0 = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func pendingRequest() storage.Request {
	return storage.Request{
		ID:           "req-1",
		NGOID:        "ngo-1",
		Location:     geo.Point{Lat: 19.07, Lng: 72.87},
		Quantity:     30,
		FoodCategory: "cooked",
		Urgency:      storage.UrgencyHigh,
		Status:       storage.StatusPending,
		Version:      1,
		CreatedAt:    t0,
		ExpiresAt:    t0.Add(4 * time.Hour),
		UpdatedAt:    t0,
	}
}

func eligible() []storage.Match {
	return []storage.Match{
		{CandidateID: "donor-1", Role: storage.RoleDonor, Score: 0.9},
		{CandidateID: "vol-1", Role: storage.RoleVolunteer, Score: 0.8},
	}
}

func TestApply_HappyPath(t *testing.T) {
	req := pendingRequest()
	now := t0.Add(time.Minute)

	req, entry, err := Apply(req, Input{Event: EventApprove, Now: now, NGOVerified: true})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusApproved, req.Status)
	assert.Equal(t, "approve", entry.Event)

	req, entry, err = Apply(req, Input{Event: EventMatch, Now: now, Eligible: eligible(), Payload: Payload{CandidateID: "donor-1"}})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusMatched, req.Status)
	assert.Equal(t, "donor-1", req.MatchedDonorID)
	assert.Equal(t, "donor-1", entry.CandidateID)

	_, _, err = Apply(req, Input{Event: EventStartDelivery, Now: now})
	assert.ErrorIs(t, err, ErrInvalidStateTransition)

	req, _, err = Apply(req, Input{Event: EventMatch, Now: now, Eligible: eligible(), Payload: Payload{CandidateID: "vol-1"}})
	require.NoError(t, err)
	assert.Equal(t, "vol-1", req.MatchedVolunteerID)

	req, _, err = Apply(req, Input{Event: EventStartDelivery, Now: now})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusInProgress, req.Status)

	_, _, err = Apply(req, Input{Event: EventComplete, Now: now, Payload: Payload{Proof: "  "}})
	assert.ErrorIs(t, err, ErrMissingProof)

	req, entry, err = Apply(req, Input{Event: EventComplete, Now: now, Payload: Payload{Proof: "photo-42"}})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusCompleted, req.Status)
	assert.Equal(t, "photo-42", req.ProofRef)
	assert.Equal(t, now, entry.ChangedAt)
}

func TestApply_Rejections(t *testing.T) {
	now := t0.Add(time.Minute)
	approved := pendingRequest()
	approved.Status = storage.StatusApproved

	tests := []struct {
		name    string
		req     storage.Request
		in      Input
		wantErr error
	}{
		{
			name:    "approve unverified ngo",
			req:     pendingRequest(),
			in:      Input{Event: EventApprove, Now: now},
			wantErr: ErrUnverifiedNGO,
		},
		{
			name:    "match before approval",
			req:     pendingRequest(),
			in:      Input{Event: EventMatch, Now: now, Eligible: eligible(), Payload: Payload{CandidateID: "donor-1"}},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name:    "match ineligible candidate",
			req:     approved,
			in:      Input{Event: EventMatch, Now: now, Eligible: eligible(), Payload: Payload{CandidateID: "donor-9"}},
			wantErr: ErrInvalidMatch,
		},
		{
			name:    "match without candidate",
			req:     approved,
			in:      Input{Event: EventMatch, Now: now, Eligible: eligible()},
			wantErr: ErrInvalidMatch,
		},
		{
			name:    "complete from approved",
			req:     approved,
			in:      Input{Event: EventComplete, Now: now, Payload: Payload{Proof: "p"}},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name:    "event after expiry",
			req:     approved,
			in:      Input{Event: EventReject, Now: t0.Add(5 * time.Hour)},
			wantErr: ErrInvalidStateTransition,
		},
		{
			name:    "unknown event",
			req:     approved,
			in:      Input{Event: Event("teleport"), Now: now},
			wantErr: ErrUnknownEvent,
		},
		{
			name:    "create is not submittable",
			req:     approved,
			in:      Input{Event: EventCreate, Now: now},
			wantErr: ErrUnknownEvent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := Apply(tc.req, tc.in)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.req, got)
		})
	}
}

func TestApply_SecondMatchSameRole(t *testing.T) {
	now := t0.Add(time.Minute)
	req := pendingRequest()
	req.Status = storage.StatusMatched
	req.MatchedDonorID = "donor-1"

	matches := append(eligible(), storage.Match{CandidateID: "donor-2", Role: storage.RoleDonor})
	_, _, err := Apply(req, Input{Event: EventMatch, Now: now, Eligible: matches, Payload: Payload{CandidateID: "donor-2"}})
	assert.ErrorIs(t, err, ErrInvalidMatch)
}

func TestApply_TerminalStatesAcceptNothing(t *testing.T) {
	now := t0.Add(time.Minute)
	for _, status := range []storage.Status{storage.StatusCompleted, storage.StatusRejected, storage.StatusExpired} {
		req := pendingRequest()
		req.Status = status
		for event := range allowedFrom {
			_, _, err := Apply(req, Input{Event: event, Now: now, NGOVerified: true, Payload: Payload{Proof: "p", CandidateID: "donor-1"}, Eligible: eligible()})
			assert.ErrorIs(t, err, ErrInvalidStateTransition, "%s from %s", event, status)
		}
	}
}

func TestReject(t *testing.T) {
	req, entry, err := Apply(pendingRequest(), Input{Event: EventReject, Now: t0, Payload: Payload{Reason: " duplicate "}})
	require.NoError(t, err)
	assert.Equal(t, storage.StatusRejected, req.Status)
	assert.Equal(t, "duplicate", req.RejectReason)
	assert.Equal(t, "duplicate", entry.Note)
}

func TestExpire(t *testing.T) {
	req := pendingRequest()

	_, _, ok := Expire(req, req.ExpiresAt)
	assert.False(t, ok, "expiry instant itself is not overdue")

	next, entry, ok := Expire(req, req.ExpiresAt.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, storage.StatusExpired, next.Status)
	assert.Equal(t, "expire", entry.Event)

	_, _, ok = Expire(next, next.ExpiresAt.Add(time.Hour))
	assert.False(t, ok)
}

func TestParseEvent(t *testing.T) {
	e, err := ParseEvent(" Start_Delivery ")
	require.NoError(t, err)
	assert.Equal(t, EventStartDelivery, e)

	_, err = ParseEvent("expire")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
