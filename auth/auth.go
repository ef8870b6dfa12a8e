// Package auth provides the authorization capability consulted before
// every dispatch.
package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/errors"
)

// AllowAll accepts every request, token or not. Insecure by default: meant
// for development deployments where authentication terminates upstream.
type AllowAll struct{}

func (AllowAll) Authorize(string) error {
	return nil
}

// JWTAuthorizer requires a "Bearer <token>" credential signed with the
// shared HMAC secret. Claims are not inspected beyond signature and
// standard validity; identity extraction stays upstream.
type JWTAuthorizer struct {
	secret []byte
}

func NewJWTAuthorizer(secret string) *JWTAuthorizer {
	return &JWTAuthorizer{secret: []byte(secret)}
}

func (a *JWTAuthorizer) Authorize(credential string) error {
	token, found := strings.CutPrefix(credential, "Bearer ")
	if !found || token == "" {
		return errors.ErrUnauthorized
	}

	_, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrUnauthorized, err)
	}
	return nil
}
