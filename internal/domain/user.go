package domain

// User is a platform account. Artists are users with IsArtist set; an artist's
// BillingAccountID is the connected payment account invoices are drafted on.
type User struct {
	UserID           string `json:"user_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	AvatarURL        string `json:"avatar_url"`
	IsArtist         bool   `json:"is_artist"`
	BillingAccountID string `json:"billing_account_id,omitempty"`
}
