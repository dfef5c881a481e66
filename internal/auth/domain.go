package auth

import "time"

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CompanyID    int64
	IsAdmin      bool
	BranchIDs    []int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Token is returned to clients after a successful login.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}
