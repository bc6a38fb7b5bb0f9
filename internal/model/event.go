package model

import "time"

// Event is a clustered real-world occurrence inferred from one or more
// articles sharing a normalized title/date signature.
type Event struct {
	ID         int64      `json:"id,omitempty"`
	Signature  string     `json:"signature"`
	EventDate  *time.Time `json:"event_date,omitempty"`
	EventType  string     `json:"event_type,omitempty"`
	Title      string     `json:"title,omitempty"`
	Summary    string     `json:"summary,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"` // [0,100], nil until scored
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Entity is a team or player reference linked to events. Entity
// resolution is a stub; rows carry display names only.
type Entity struct {
	ID          int64  `json:"id,omitempty"`
	EntityType  string `json:"entity_type"`
	ExternalID  string `json:"external_id,omitempty"`
	DisplayName string `json:"display_name"`
}

// EventEntity links an event to an entity with a role, unique per
// (event, entity, role).
type EventEntity struct {
	EventID  int64  `json:"event_id"`
	EntityID int64  `json:"entity_id"`
	Role     string `json:"role,omitempty"`
}

// Source is a citation origin, distinct from feed configuration.
type Source struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Publisher string `json:"publisher,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Claim statuses. New claims always start as reported.
const (
	ClaimStatusReported  = "reported"
	ClaimStatusConfirmed = "confirmed"
	ClaimStatusRetracted = "retracted"
)

// Claim is an extracted factual assertion tied to an event.
type Claim struct {
	ID         int64    `json:"id,omitempty"`
	EventID    int64    `json:"event_id"`
	ClaimText  string   `json:"claim_text"`
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// ClaimSource carries provenance for a claim.
type ClaimSource struct {
	ClaimID  int64  `json:"claim_id"`
	SourceID int64  `json:"source_id,omitempty"`
	URL      string `json:"url,omitempty"`
	Citation string `json:"citation,omitempty"`
}

// EventArticle links an event to an article that produced it, unique
// per (event, article).
type EventArticle struct {
	EventID   int64  `json:"event_id"`
	ArticleID int64  `json:"article_id"`
	Relation  string `json:"relation,omitempty"`
}
