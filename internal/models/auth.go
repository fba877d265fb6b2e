package models

import "time"

// LoginRequest holds the credentials posted to the upstream login endpoint.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Tokens is the bearer token pair issued by the upstream API.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Profile is the cached view of the signed-in account.
type Profile struct {
	ID       string   `json:"_id"`
	FullName string   `json:"fullName"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	Avatar   string   `json:"avatar,omitempty"`
}

// IsAdmin reports whether the profile grants access to the console.
func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// LoginResponse is the flat upstream login body: the token pair plus the profile fields.
type LoginResponse struct {
	Tokens
	Profile
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshTokenResponse carries the rotated access token.
type RefreshTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// Session is an immutable snapshot of a console session.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	Profile      Profile
	DarkMode     bool
	ExpiresAt    *time.Time
}

// Tokens returns the token pair held by the session.
func (s Session) Tokens() Tokens {
	return Tokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}
