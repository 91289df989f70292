// api/models/event.go
package models

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// TrackingData is the inner block of a beacon payload. The category value
// "Page views" marks a page-type event; the decoder does not enforce that
// it agrees with Type, the browser script owns that contract.
type TrackingData struct {
	Type          string `json:"type"`
	Identity      string `json:"identity"`
	UserAgent     string `json:"ua"`
	Event         string `json:"event"`
	Category      string `json:"category"`
	Referrer      string `json:"referrer"`
	IsTouchDevice bool   `json:"isTouch"`
}

// Tracking is the wire envelope carried in the base64 "data" query
// parameter.
type Tracking struct {
	SiteID string        `json:"site_id"`
	Action *TrackingData `json:"tracking"`
}

// EnrichedEvent is a tracking record joined with the derived attributes
// the ingest pipeline computes. Absent sources are empty strings, never
// null; occured_at and timestamp are stamped by the columnar writer at
// insertion time.
type EnrichedEvent struct {
	SiteID         string
	Type           string
	UserID         string
	Event          string
	Category       string
	Referrer       string
	ReferrerDomain string
	IsTouch        bool
	BrowserName    string
	OSName         string
	DeviceType     string
	Country        string
	Region         string
}

// StatsRequest is the POST /stats body. Start and end are occured_at
// day-bucket literals (YYYYMMDD).
type StatsRequest struct {
	SiteID string `json:"site_id"`
	Start  uint32 `json:"start"`
	End    uint32 `json:"end"`
	What   string `json:"what"`
}

// Metric is one aggregate row. Value holds the page path for page-view
// queries and the visitor identity for unique-visitor queries.
type Metric struct {
	OccuredAt uint32 `json:"occured_at"`
	Value     string `json:"value"`
	Count     uint64 `json:"count"`
}

var (
	ErrEmptyPayload    = errors.New("empty tracking payload")
	ErrMissingSiteID   = errors.New("tracking payload missing site_id")
	ErrMissingTracking = errors.New("tracking payload missing tracking block")
)

// DecodeTracking turns the raw value of the "data" query parameter into a
// validated wire envelope. The input is the standard-alphabet base64 of a
// UTF-8 JSON object; unknown fields are ignored.
func DecodeTracking(raw string) (Tracking, error) {
	var data Tracking

	if raw == "" {
		return data, ErrEmptyPayload
	}

	b, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return data, fmt.Errorf("invalid base64 payload: %w", err)
	}

	if err := json.Unmarshal(b, &data); err != nil {
		return data, fmt.Errorf("invalid tracking payload: %w", err)
	}

	if data.SiteID == "" {
		return data, ErrMissingSiteID
	}
	if data.Action == nil {
		return data, ErrMissingTracking
	}

	return data, nil
}
