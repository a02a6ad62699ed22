package booking

import (
	"net/mail"
	"regexp"
	"strings"

	"tourbooking/internal/pkg/validator"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var blockedEmailDomains = map[string]struct{}{
	"test.com":    {},
	"example.com": {},
	"fake.com":    {},
	"dummy.com":   {},
	"temp.com":    {},
	"invalid.com": {},
}

// ValidateEmail returns the normalized address or ErrInvalidEmail. Syntax
// is checked by pattern and by net/mail, and placeholder domains are
// rejected.
func ValidateEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !emailPattern.MatchString(email) || validator.Var(email, "email") != nil {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if _, blocked := blockedEmailDomains[domain]; blocked {
		return "", ErrInvalidEmail
	}
	return email, nil
}
