package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = time.Hour

// DefaultLeeway is the tolerated clock skew when checking expiry.
const DefaultLeeway = 60 * time.Second

// maxEpoch is the largest epoch second that survives a round trip through a
// JSON number without losing precision.
const maxEpoch = 1<<53 - 1

// validMethods pins verification to HS256; "none" and asymmetric algorithms
// are rejected before the key is consulted.
var validMethods = []string{gojwt.SigningMethodHS256.Alg()}

// Claims is the claim set carried by a credential.
type Claims struct {
	Role string `json:"role"`
	gojwt.RegisteredClaims
}

// ExpiresAtTime returns the exp claim, or the zero time if absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issue signs a credential for subject and role that expires DefaultTTL after now.
func Issue(subject, role, secret string, now time.Time) (string, error) {
	return IssueWithTTL(subject, role, secret, now, DefaultTTL)
}

// IssueWithTTL signs a credential that expires ttl after now. The only
// failure is an expiry that cannot be encoded, which means the clock is broken.
func IssueWithTTL(subject, role, secret string, now time.Time, ttl time.Duration) (string, error) {
	expiresAt := now.Add(ttl)
	if sec := expiresAt.Unix(); now.IsZero() || sec <= 0 || sec > maxEpoch || expiresAt.Before(now) {
		return "", fmt.Errorf("%w: %s", ErrUnrepresentableTime, expiresAt.Format(time.RFC3339))
	}

	claims := Claims{
		Role: role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: gojwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// MustIssue is like Issue but panics on failure.
func MustIssue(subject, role, secret string, now time.Time) string {
	token, err := Issue(subject, role, secret, now)
	if err != nil {
		panic(err)
	}
	return token
}

// Verify checks the signature of token against secret and its expiry against
// now with the given leeway. The error is a *ValidationError whose kind is
// ErrMissingHeader, ErrMalformedToken or ErrInvalidSignatureOrExpired.
func Verify(token, secret string, leeway time.Duration, now time.Time) (*Claims, error) {
	if token == "" {
		return nil, newValidationError(ErrMissingHeader, nil)
	}

	// The parser rejects once now >= exp+leeway; the boundary itself stays valid.
	checkAt := now.Add(-time.Nanosecond)

	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims,
		func(*gojwt.Token) (interface{}, error) { return []byte(secret), nil },
		gojwt.WithValidMethods(validMethods),
		gojwt.WithLeeway(leeway),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(func() time.Time { return checkAt }),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenMalformed) {
			return nil, newValidationError(ErrMalformedToken, err)
		}
		return nil, newValidationError(ErrInvalidSignatureOrExpired, err)
	}

	return claims, nil
}
