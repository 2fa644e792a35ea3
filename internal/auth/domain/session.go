package domain

import "time"

// SessionPayload is the identity carried by a signed session token.
type SessionPayload struct {
	Subject     string
	Email       string
	Name        string
	Role        Role
	MFAVerified bool
}

// Session is a signed token plus the payload it encodes.
type Session struct {
	Token     string
	Payload   SessionPayload
	ExpiresAt time.Time
	TTL       time.Duration
}
