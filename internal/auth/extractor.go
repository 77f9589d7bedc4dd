package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/scoregw/internal/auth/jwt"
	"github.com/vyrodovalexey/scoregw/internal/util"
)

// HTTP header constants for authentication.
const (
	// HeaderAuthorization is the Authorization header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// BearerPrefix precedes the credential in the Authorization header.
	BearerPrefix = "Bearer "
)

// BearerToken returns the raw credential from "Authorization: Bearer <token>".
// It does not verify the token.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(HeaderAuthorization)
	if header == "" {
		return "", jwt.ErrMissingHeader
	}

	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", jwt.ErrMalformedToken
	}
	return token, nil
}

// KindOf maps a credential error to its response kind.
func KindOf(err error) util.Kind {
	switch {
	case errors.Is(err, jwt.ErrMissingHeader):
		return util.KindMissingHeader
	case errors.Is(err, jwt.ErrMalformedToken):
		return util.KindMalformedToken
	default:
		return util.KindInvalidSignatureOrExpired
	}
}

// MessageOf returns the client-facing message for an authentication kind.
func MessageOf(kind util.Kind) string {
	switch kind {
	case util.KindMissingHeader:
		return "missing authorization header"
	case util.KindMalformedToken:
		return "invalid token format"
	default:
		return "invalid or expired token"
	}
}
