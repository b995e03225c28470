package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/dialog"
)

var testKey = []byte("test-signing-key")

func TestIssueAndValidate(t *testing.T) {
	a, err := New(testKey, time.Hour)
	require.NoError(t, err)

	sessionID := NewSessionID()
	credential, err := a.Issue(sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, credential)

	got, err := a.Validate(credential)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestValidate_Expired(t *testing.T) {
	issuer, err := New(testKey, time.Hour)
	require.NoError(t, err)
	// Issue from eight days in the past so the credential is long expired
	// by the time it is validated with a correct signature.
	issuer.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	credential, err := issuer.Issue("session-1")
	require.NoError(t, err)

	validator, err := New(testKey, time.Hour)
	require.NoError(t, err)

	_, err = validator.Validate(credential)
	assert.ErrorIs(t, err, dialog.ErrExpiredCredential)
}

func TestValidate_TamperedSignature(t *testing.T) {
	a, err := New(testKey, time.Hour)
	require.NoError(t, err)

	credential, err := a.Issue("session-1")
	require.NoError(t, err)

	tampered := credential[:len(credential)-2] + "xx"
	_, err = a.Validate(tampered)
	assert.ErrorIs(t, err, dialog.ErrInvalidCredential)
}

func TestValidate_WrongKey(t *testing.T) {
	issuer, err := New([]byte("other-key"), time.Hour)
	require.NoError(t, err)
	credential, err := issuer.Issue("session-1")
	require.NoError(t, err)

	a, err := New(testKey, time.Hour)
	require.NoError(t, err)
	_, err = a.Validate(credential)
	assert.ErrorIs(t, err, dialog.ErrInvalidCredential)
}

func TestValidate_Malformed(t *testing.T) {
	a, err := New(testKey, time.Hour)
	require.NoError(t, err)

	for _, credential := range []string{"", "garbage", "a.b.c"} {
		_, err := a.Validate(credential)
		assert.ErrorIs(t, err, dialog.ErrInvalidCredential, "credential %q", credential)
	}
}

func TestValidate_MissingSubject(t *testing.T) {
	a, err := New(testKey, time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	credential, err := token.SignedString(testKey)
	require.NoError(t, err)

	_, err = a.Validate(credential)
	assert.ErrorIs(t, err, dialog.ErrInvalidCredential)
}

func TestValidate_MissingExpiry(t *testing.T) {
	a, err := New(testKey, time.Hour)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "session-1",
	})
	credential, err := token.SignedString(testKey)
	require.NoError(t, err)

	_, err = a.Validate(credential)
	assert.ErrorIs(t, err, dialog.ErrInvalidCredential)
}
