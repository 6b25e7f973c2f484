package model

import "time"

// Event kinds recorded by the pipeline. Each kind fires at most once per
// link, enforced by UNIQUE(kind, link_id) with insert-ignore-on-conflict.
const (
	EventLinkNew        = "link.new"
	EventLinkClassified = "link.classified"
	EventLinkRouted     = "link.routed"
)

// Event is an append-only audit record of a lifecycle transition.
type Event struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	LinkID    int64          `json:"link_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
