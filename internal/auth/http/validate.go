package http

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/portal/internal/auth/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	minNameLen     = 2
	maxNameLen     = 100
	minPasswordLen = 8
	minCodeLen     = 4
	maxCodeLen     = 10
)

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, seen := f[field]; !seen {
		f[field] = msg
	}
}

func (f fieldErrors) email(field, v string) {
	if !emailPattern.MatchString(strings.TrimSpace(v)) {
		f.add(field, "must be a valid email address")
	}
}

func (f fieldErrors) required(field, v string) {
	if strings.TrimSpace(v) == "" {
		f.add(field, "is required")
	}
}

func validateSignup(email, name, password, role string) (domain.Role, fieldErrors) {
	errs := fieldErrors{}
	errs.email("email", email)

	if n := utf8.RuneCountInString(strings.TrimSpace(name)); n < minNameLen || n > maxNameLen {
		errs.add("name", "must be between 2 and 100 characters")
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		errs.add("password", "must be at least 8 characters")
	}

	r := domain.RoleClient
	if role != "" {
		parsed, ok := domain.ParseRole(role)
		if !ok {
			errs.add("role", "must be one of admin, client, talent")
		}
		r = parsed
	}
	return r, errs
}

func validateLogin(email, password string) fieldErrors {
	errs := fieldErrors{}
	errs.email("email", email)
	if password == "" {
		errs.add("password", "is required")
	}
	return errs
}

func validateMFAVerify(email, method, code string) fieldErrors {
	errs := fieldErrors{}
	errs.email("email", email)
	if method != domain.MethodTOTP && method != domain.MethodEmail {
		errs.add("method", "must be totp or email")
	}
	if n := len(strings.TrimSpace(code)); n < minCodeLen || n > maxCodeLen {
		errs.add("code", "must be between 4 and 10 characters")
	}
	return errs
}

func validateMFAEnable(secret, code string) fieldErrors {
	errs := fieldErrors{}
	errs.required("secret", secret)
	errs.required("code", code)
	return errs
}
