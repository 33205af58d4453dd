// internal/identity/models.go
// Data structures for the user directory and authentication.

package identity

import (
	"time"
)

// User represents an account in the directory.
// Using SERIAL (int64) for ID instead of UUID for better performance.
type User struct {
	ID            int64      `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	Username      string     `json:"username" db:"username"`
	DisplayName   string     `json:"display_name" db:"display_name"`
	PasswordHash  string     `json:"-" db:"password_hash"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// UserInfo is the public subset of a user embedded in match results.
type UserInfo struct {
	ID          int64  `json:"id" db:"id"`
	Username    string `json:"username" db:"username"`
	DisplayName string `json:"display_name" db:"display_name"`
}

// Info returns the public view of a user.
func (u *User) Info() *UserInfo {
	return &UserInfo{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
	}
}

// SignupRequest is what the client sends to create an account.
// Validation tags ensure data quality at the API boundary.
type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required,min=3,max=30,alphanum"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=60"`
	Password    string `json:"password" validate:"required,min=8,max=100"`
}

// SigninRequest handles email login.
type SigninRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest to get a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is what we send back after successful authentication.
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
