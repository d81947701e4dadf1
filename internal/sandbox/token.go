package sandbox

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// accessClaims mirrors what the real backend issues: roles in a
// space-separated scope claim.
type accessClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

type signer struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// sign returns (tokenString, jti).
func (s signer) sign(userID string, roles []string) (string, string, error) {
	now := s.now()
	jti := uuid.NewString()
	claims := accessClaims{
		Scope: strings.Join(roles, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "library-sandbox",
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	str, err := t.SignedString(s.secret)
	return str, jti, err
}

// parse verifies the HS256 signature and expiry against the server clock.
func (s signer) parse(tokenStr string) (*accessClaims, error) {
	parser := jwt.NewParser(
		jwt.WithLeeway(s.leeway),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(tokenStr, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
