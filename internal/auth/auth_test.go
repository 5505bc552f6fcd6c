package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	iss, err := NewIssuer("s3cret")
	require.NoError(t, err)
	ver, err := NewVerifier("s3cret")
	require.NoError(t, err)

	tok, err := iss.Issue(User{ID: "u1", Email: "ada@example.com", Name: "Ada"}, time.Hour)
	require.NoError(t, err)

	u, err := ver.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: "u1", Email: "ada@example.com", Name: "Ada"}, u)
}

func TestVerify_Rejects(t *testing.T) {
	iss, err := NewIssuer("s3cret")
	require.NoError(t, err)
	ver, err := NewVerifier("s3cret")
	require.NoError(t, err)

	other, err := NewIssuer("other")
	require.NoError(t, err)
	wrongKey, err := other.Issue(User{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := iss.Issue(User{ID: "u1"}, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject: "u1", Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":   "not-a-token",
		"wrong key": wrongKey,
		"expired":   expired,
		"alg none":  none,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ver.Verify(tok)
			assert.ErrorIs(t, err, ErrNotAuthenticated)
		})
	}
}

func TestIssue_RequiresUserID(t *testing.T) {
	iss, err := NewIssuer("s3cret")
	require.NoError(t, err)
	_, err = iss.Issue(User{}, time.Hour)
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := NewIssuer("")
	assert.Error(t, err)
	_, err = NewVerifier("")
	assert.Error(t, err)
}

func TestCurrentUser(t *testing.T) {
	_, err := CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	ctx := WithUser(context.Background(), &User{ID: "u1"})
	u, err := CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	_, err = CurrentUser(WithUser(context.Background(), nil))
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
