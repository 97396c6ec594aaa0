package entity

import (
	"time"

	"github.com/google/uuid"
)

// Card is a persisted contact record together with the user's annotations.
type Card struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Name             string    `json:"name"`
	Designation      string    `json:"designation"`
	Company          string    `json:"company"`
	Phones           []string  `json:"phones"`
	Emails           []string  `json:"emails"`
	Addresses        []string  `json:"addresses"`
	Websites         []string  `json:"websites"`
	OCRAvgConfidence float64   `json:"ocr_avg_confidence"`
	Stage            string    `json:"stage"`
	QROverride       bool      `json:"qr_override"`
	IsOwner          bool      `json:"is_owner"`
	Tags             []string  `json:"tags"`
	Notes            string    `json:"notes"`
	EventName        string    `json:"event_name"`
	LocationLat      *float64  `json:"location_lat,omitempty"`
	LocationLng      *float64  `json:"location_lng,omitempty"`
	LocationName     string    `json:"location_name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CardPatch holds the editable fields of a card; nil means unchanged.
type CardPatch struct {
	Name         *string   `json:"name,omitempty"`
	Designation  *string   `json:"designation,omitempty"`
	Company      *string   `json:"company,omitempty"`
	Phones       *[]string `json:"phones,omitempty"`
	Emails       *[]string `json:"emails,omitempty"`
	Addresses    *[]string `json:"addresses,omitempty"`
	Websites     *[]string `json:"websites,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
	EventName    *string   `json:"event_name,omitempty"`
	LocationLat  *float64  `json:"location_lat,omitempty"`
	LocationLng  *float64  `json:"location_lng,omitempty"`
	LocationName *string   `json:"location_name,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p == CardPatch{}
}
