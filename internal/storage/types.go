package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smartplate/redistribution/internal/geo"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrConcurrentUpdate = errors.New("request was modified concurrently")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnknownUrgency   = errors.New("unknown urgency level")
	ErrUnknownRole      = errors.New("unknown role")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusMatched    Status = "matched"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
)

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusExpired
}

type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyEmergency Urgency = "emergency"
)

var urgencyRanks = map[Urgency]int{
	UrgencyLow:       0,
	UrgencyMedium:    1,
	UrgencyHigh:      2,
	UrgencyEmergency: 3,
}

// Rank orders urgency levels low < medium < high < emergency. Unknown levels rank -1.
func (u Urgency) Rank() int {
	if r, ok := urgencyRanks[u]; ok {
		return r
	}
	return -1
}

func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(strings.ToLower(strings.TrimSpace(s)))
	if u.Rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownUrgency, s)
	}
	return u, nil
}

type Role string

const (
	RoleDonor     Role = "donor"
	RoleVolunteer Role = "volunteer"
	RoleNGO       Role = "ngo"
	RoleAdmin     Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleDonor, RoleVolunteer, RoleNGO, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

type Request struct {
	ID                 string    `json:"id"`
	NGOID              string    `json:"ngo_id"`
	Title              string    `json:"title"`
	Location           geo.Point `json:"location"`
	Quantity           float64   `json:"quantity"`
	Unit               string    `json:"unit"`
	FoodCategory       string    `json:"food_category"`
	Urgency            Urgency   `json:"urgency"`
	Status             Status    `json:"status"`
	MatchedDonorID     string    `json:"matched_donor_id,omitempty"`
	MatchedVolunteerID string    `json:"matched_volunteer_id,omitempty"`
	ProofRef           string    `json:"proof_ref,omitempty"`
	RejectReason       string    `json:"reject_reason,omitempty"`
	Version            int       `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	ExpiresAt          time.Time `json:"expires_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Validate checks the structural invariants of a new request. Food category
// is checked by the spoilage estimator, which owns the category table.
func (r Request) Validate() error {
	if r.ID == "" || r.NGOID == "" {
		return fmt.Errorf("%w: id and ngo_id are required", ErrInvalidRequest)
	}
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest)
	}
	if r.Urgency.Rank() < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownUrgency, r.Urgency)
	}
	if !r.ExpiresAt.After(r.CreatedAt) {
		return fmt.Errorf("%w: expires_at must be after created_at", ErrInvalidRequest)
	}
	return nil
}

// SlotFilled reports whether the matched reference for role is already set.
func (r Request) SlotFilled(role Role) bool {
	switch role {
	case RoleDonor:
		return r.MatchedDonorID != ""
	case RoleVolunteer:
		return r.MatchedVolunteerID != ""
	}
	return false
}

// Candidate is a donor or volunteer able to serve requests.
type Candidate struct {
	ID            string    `json:"id"`
	Role          Role      `json:"role"`
	Name          string    `json:"name"`
	Location      geo.Point `json:"location"`
	Capacity      float64   `json:"capacity"`
	MaxDistanceKm float64   `json:"max_distance_km,omitempty"`
	Available     bool      `json:"available"`
	TrustScore    float64   `json:"trust_score,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (c Candidate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: candidate id is required", ErrInvalidRequest)
	}
	if c.Role != RoleDonor && c.Role != RoleVolunteer {
		return fmt.Errorf("%w: candidate role must be donor or volunteer, got %q", ErrUnknownRole, c.Role)
	}
	if c.Capacity < 0 || c.MaxDistanceKm < 0 {
		return fmt.Errorf("%w: capacity and max_distance_km must not be negative", ErrInvalidRequest)
	}
	return c.Location.Validate()
}

type NGO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Match is a scored pairing, recomputed on demand and never stored.
type Match struct {
	RequestID    string  `json:"request_id"`
	CandidateID  string  `json:"candidate_id"`
	Role         Role    `json:"role"`
	Score        float64 `json:"score"`
	DistanceKm   float64 `json:"distance_km"`
	SpoilageRisk float64 `json:"spoilage_risk"`
}

type HistoryEntry struct {
	RequestID   string    `json:"request_id"`
	Status      Status    `json:"status"`
	Event       string    `json:"event"`
	CandidateID string    `json:"candidate_id,omitempty"`
	Note        string    `json:"note,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

// ContributionEvent is one entry of the append-only donation/delivery log.
type ContributionEvent struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Meals     float64   `json:"meals"`
	Timestamp time.Time `json:"timestamp"`
}

type BadgeTier string

const (
	TierBronze   BadgeTier = "bronze"
	TierSilver   BadgeTier = "silver"
	TierGold     BadgeTier = "gold"
	TierPlatinum BadgeTier = "platinum"
)

// Rank orders tiers bronze < silver < gold < platinum.
func (t BadgeTier) Rank() int {
	switch t {
	case TierBronze:
		return 0
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	}
	return -1
}

type Badge struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Tier     BadgeTier `json:"tier"`
	Name     string    `json:"name"`
	EarnedAt time.Time `json:"earned_at"`
}
