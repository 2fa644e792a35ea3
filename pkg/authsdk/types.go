package authsdk

// SignupRequest creates an account. Role defaults to "client".
type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MFAMethods lists the second factors a user can answer with.
type MFAMethods struct {
	TOTP     bool `json:"totp"`
	EmailOTP bool `json:"emailOtp"`
}

// LoginHint exposes the issued email code outside production.
type LoginHint struct {
	EmailOTP string `json:"emailOtp,omitempty"`
}

// LoginResponse reports whether a second factor is needed. When NeedMFA is
// false the session cookie has already been set.
type LoginResponse struct {
	Success bool         `json:"success"`
	NeedMFA bool         `json:"needMfa"`
	Methods MFAMethods   `json:"methods"`
	User    UserResponse `json:"user"`
	Hint    *LoginHint   `json:"hint,omitempty"`
}

// MFAVerifyRequest answers a login challenge. Method is "totp" or "email".
type MFAVerifyRequest struct {
	Email  string `json:"email"`
	Method string `json:"method"`
	Code   string `json:"code"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// MFASetupResponse carries a fresh, not yet enabled authenticator secret.
type MFASetupResponse struct {
	Secret  string `json:"secret"`
	OTPAuth string `json:"otpauth"`
}

type MFAEnableRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// SessionUser is the decoded session as returned by /api/auth/me.
type SessionUser struct {
	Subject     string `json:"sub"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	MFAVerified bool   `json:"mfaVerified"`
	ExpiresAt   int64  `json:"exp,omitempty"`
}

type MeResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *SessionUser `json:"user"`
}

// ErrorResponse documents the failure body; clients receive *APIError.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Details          map[string]string `json:"details,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports each backing store on /readyz.
type HealthChecks struct {
	Users    string `json:"users"`
	OTPCodes string `json:"otp_codes"`
}
