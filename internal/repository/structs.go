package repository

import (
	"errors"
	"time"
)

var (
	ErrObjectNotFound  = errors.New("not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrVersionConflict = errors.New("version conflict")
)

type Request struct {
	ID                 string    `db:"id"`
	NGOID              string    `db:"ngo_id"`
	Title              string    `db:"title"`
	Lat                float64   `db:"lat"`
	Lng                float64   `db:"lng"`
	Quantity           float64   `db:"quantity"`
	Unit               string    `db:"unit"`
	FoodCategory       string    `db:"food_category"`
	Urgency            string    `db:"urgency"`
	Status             string    `db:"status"`
	MatchedDonorID     string    `db:"matched_donor_id"`
	MatchedVolunteerID string    `db:"matched_volunteer_id"`
	ProofRef           string    `db:"proof_ref"`
	RejectReason       string    `db:"reject_reason"`
	Version            int       `db:"version"`
	CreatedAt          time.Time `db:"created_at"`
	ExpiresAt          time.Time `db:"expires_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

type HistoryEntry struct {
	ID          int64     `db:"id"`
	RequestID   string    `db:"request_id"`
	Status      string    `db:"status"`
	Event       string    `db:"event"`
	CandidateID string    `db:"candidate_id"`
	Note        string    `db:"note"`
	ChangedAt   time.Time `db:"changed_at"`
}

type Candidate struct {
	ID            string    `db:"id"`
	Role          string    `db:"role"`
	Name          string    `db:"name"`
	Lat           float64   `db:"lat"`
	Lng           float64   `db:"lng"`
	Capacity      float64   `db:"capacity"`
	MaxDistanceKm float64   `db:"max_distance_km"`
	Available     bool      `db:"available"`
	TrustScore    float64   `db:"trust_score"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type NGO struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Verified  bool      `db:"verified"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Contribution struct {
	ID        string    `db:"id"`
	RequestID string    `db:"request_id"`
	UserID    string    `db:"user_id"`
	Role      string    `db:"role"`
	Meals     float64   `db:"meals"`
	CreatedAt time.Time `db:"created_at"`
}
