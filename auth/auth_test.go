package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

func signedToken(t *testing.T, secret string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAllowAll_Accepts_Anything(t *testing.T) {
	req := require.New(t)

	req.NoError(AllowAll{}.Authorize(""))
	req.NoError(AllowAll{}.Authorize("Bearer whatever"))
}

func TestJWTAuthorizer_Accepts_Valid_Token(t *testing.T) {
	req := require.New(t)
	authorizer := NewJWTAuthorizer("secret")

	credential := "Bearer " + signedToken(t, "secret", time.Hour)

	req.NoError(authorizer.Authorize(credential))
}

func TestJWTAuthorizer_Rejects_Missing_Bearer_Prefix(t *testing.T) {
	req := require.New(t)
	authorizer := NewJWTAuthorizer("secret")

	err := authorizer.Authorize(signedToken(t, "secret", time.Hour))

	req.ErrorIs(err, errors.ErrUnauthorized)
}

func TestJWTAuthorizer_Rejects_Empty_Credential(t *testing.T) {
	req := require.New(t)
	authorizer := NewJWTAuthorizer("secret")

	req.ErrorIs(authorizer.Authorize(""), errors.ErrUnauthorized)
	req.ErrorIs(authorizer.Authorize("Bearer "), errors.ErrUnauthorized)
}

func TestJWTAuthorizer_Rejects_Wrong_Signature(t *testing.T) {
	req := require.New(t)
	authorizer := NewJWTAuthorizer("secret")

	err := authorizer.Authorize("Bearer " + signedToken(t, "other-secret", time.Hour))

	req.ErrorIs(err, errors.ErrUnauthorized)
}

func TestJWTAuthorizer_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	authorizer := NewJWTAuthorizer("secret")

	err := authorizer.Authorize("Bearer " + signedToken(t, "secret", -time.Hour))

	req.ErrorIs(err, errors.ErrUnauthorized)
}
