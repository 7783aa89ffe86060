package domain

import "time"

// CustomerBinding maps a (user, artist) pair to the billing-side customer
// record. Unique on (user_id, artist_id); created at most once per pair.
type CustomerBinding struct {
	UserID           string    `json:"user_id"`
	ArtistID         string    `json:"artist_id"`
	CustomerID       string    `json:"customer_id"`        // billing-side id
	PaymentAccountID string    `json:"payment_account_id"` // artist's connected account
	CreatedAt        time.Time `json:"created_at"`
}
