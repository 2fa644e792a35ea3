package domain

import "time"

type User struct {
	ID           string
	Email        string // lowercased, unique
	Name         string
	Role         Role
	PasswordHash string // salthex$digesthex
	MFAEnabled   bool
	MFASecret    string // TOTP secret (base32), set iff MFAEnabled
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasTOTP reports whether an authenticator app is enrolled.
func (u User) HasTOTP() bool {
	return u.MFAEnabled && u.MFASecret != ""
}

// PublicUser is the subset of a user that is safe to return to clients.
type PublicUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  Role   `json:"role"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}
