package domain

import "time"

// Availability commission admission state.
type Availability string

const (
	AvailabilityOpen     Availability = "open"
	AvailabilityWaitlist Availability = "waitlist"
	AvailabilityClosed   Availability = "closed"
)

// Commission is an artist's offering with finite capacity.
//
// Counter invariant: new_requests + accepted_requests + rejected_requests equals
// the total number of requests ever submitted against the commission. The
// counters are mutated only through atomic conditional UPDATEs at the store
// (CommissionsRepository.AdmitRequest / SettleDecision), never read-modify-write
// in application memory.
type Commission struct {
	CommissionID     string       `json:"commission_id"`
	ArtistID         string       `json:"artist_id"`
	Title            string       `json:"title"`
	Slug             string       `json:"slug"`
	Price            int64        `json:"price"` // minor currency units
	Currency         string       `json:"currency"`
	Availability     Availability `json:"availability"`
	NewRequests      int          `json:"new_requests"`
	AcceptedRequests int          `json:"accepted_requests"`
	RejectedRequests int          `json:"rejected_requests"`
	MaxUntilWaitlist int          `json:"max_until_waitlist"`
	MaxUntilClosed   int          `json:"max_until_closed"`
	CreatedAt        time.Time    `json:"created_at"`
}
