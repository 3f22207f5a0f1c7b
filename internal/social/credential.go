package social

import "time"

// Credential is the caller-supplied token bundle for one connected account.
// It is passed by value into every adapter call; adapters never store it.
type Credential struct {
	Platform     Platform  `json:"platform"`
	AccessToken  string    `json:"access_token"`
	TokenSecret  string    `json:"token_secret,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
	AccountID    string    `json:"account_id,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
}

// Expired reports whether the access token has passed its expiry.
// A zero ExpiresAt never expires.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// AccountInfo describes the account a credential belongs to.
type AccountInfo struct {
	Platform Platform `json:"platform"`
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Username string   `json:"username,omitempty"`
}
