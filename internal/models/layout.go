package models

import (
	"time"

	"github.com/ideaspark/hub/internal/layout"
)

// LayoutStatusPending is reported by the snapshot before its first background run completes.
const LayoutStatusPending layout.Status = "pending"

// LayoutQuery are the query parameters of GET /v1/layout. Zero values fall back to configuration.
type LayoutQuery struct {
	Width  float64  `form:"width" validate:"omitempty,gt=0,max=100000"`
	Height float64  `form:"height" validate:"omitempty,gt=0,max=100000"`
	Margin *float64 `form:"margin" validate:"omitempty,min=0,max=0.45"`
	Limit  int      `form:"limit" validate:"omitempty,min=1,max=10000"`
}

// LayoutSnapshot is the latest layout computed in the background, stamped with the
// generation of the run that produced it.
type LayoutSnapshot struct {
	layout.Layout

	Generation uint64     `json:"generation"`
	ComputedAt *time.Time `json:"computed_at"`
	// LastError is set when the most recent run failed; the previous layout is kept.
	LastError string `json:"last_error,omitempty"`
}
