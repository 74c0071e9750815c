package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// Credentials carries a username/password pair supplied either in a
// login request body or an Authorization: Basic header. The password is
// used once to validate a database login and is never persisted; only
// the derived Principal is cached.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const basicPrefix = "Basic"

// ParseBasicHeader extracts credentials from an Authorization header
// value. The header may carry multiple comma-separated schemes; the
// first Basic entry wins.
func ParseBasicHeader(header string) (*Credentials, error) {
	if header == "" {
		return nil, fmt.Errorf("%w: credentials not provided", ErrAuthFailed)
	}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.HasPrefix(part, basicPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(part[len(basicPrefix):]))
		if err != nil {
			return nil, fmt.Errorf("%w: malformed basic credentials", ErrAuthFailed)
		}
		username, password, found := strings.Cut(string(raw), ":")
		if !found || username == "" || password == "" {
			return nil, fmt.Errorf("%w: malformed basic credentials", ErrAuthFailed)
		}
		return &Credentials{Username: username, Password: password}, nil
	}
	return nil, fmt.Errorf("%w: credentials not provided", ErrAuthFailed)
}

// Validate rejects empty or syntactically dangerous credentials before
// any database work happens. Usernames are limited to alphanumerics,
// underscore, and period; passwords may not contain whitespace or the
// single-quote character.
func (c *Credentials) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: credentials may not be null", ErrAuthFailed)
	}
	if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
		return fmt.Errorf("%w: neither username nor password may be empty", ErrAuthFailed)
	}
	for _, r := range c.Username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return fmt.Errorf("%w: username may only contain alphanumeric, underscore, or period", ErrAuthFailed)
		}
	}
	for _, r := range c.Password {
		if unicode.IsSpace(r) || r == '\'' {
			return fmt.Errorf("%w: password may not contain whitespace or quote", ErrAuthFailed)
		}
	}
	return nil
}
