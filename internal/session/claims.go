package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the access token the client reads. The signature
// is not verified here.
type Claims struct {
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

type rawClaims struct {
	Scope string `json:"scope"`
	Role  any    `json:"role"`
	Roles any    `json:"roles"`
	jwt.RegisteredClaims
}

var ErrMalformedToken = errors.New("session: malformed token")

// ParseClaims decodes the token payload without verifying it. Roles come
// from a space-separated "scope" claim or a "role"/"roles" claim holding a
// string or a list.
func ParseClaims(token string) (Claims, error) {
	var rc rawClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &rc); err != nil {
		return Claims{}, errors.Join(ErrMalformedToken, err)
	}
	c := Claims{Subject: rc.Subject}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	c.Roles = append(c.Roles, strings.Fields(rc.Scope)...)
	c.Roles = append(c.Roles, roleList(rc.Role)...)
	c.Roles = append(c.Roles, roleList(rc.Roles)...)
	return c, nil
}

func roleList(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Fields(t)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			switch r := x.(type) {
			case string:
				out = append(out, r)
			case map[string]any:
				if name, ok := r["name"].(string); ok {
					out = append(out, name)
				}
			}
		}
		return out
	}
	return nil
}

// HasRole accepts both "ADMIN" and "ROLE_ADMIN".
func (c Claims) HasRole(name string) bool {
	want := strings.TrimPrefix(strings.ToUpper(name), "ROLE_")
	for _, r := range c.Roles {
		if strings.TrimPrefix(strings.ToUpper(r), "ROLE_") == want {
			return true
		}
	}
	return false
}

// Expired treats a token without exp as never expiring.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}
