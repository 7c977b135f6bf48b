package util

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-session-testing"

func TestGenerateSessionToken(t *testing.T) {
	sessionID := NewSessionID()

	token, err := GenerateSessionToken(sessionID, testSecret, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateSessionToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, sessionID, claims.SessionID)
	assert.Equal(t, sessionIssuer, claims.Issuer)
	assert.True(t, claims.IssuedAt.Before(claims.ExpiresAt.Time))

	_, err = GenerateSessionToken("", testSecret, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateSessionToken(t *testing.T) {
	valid, err := GenerateSessionToken(NewSessionID(), testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		secret  string
		wantErr error
	}{
		{name: "Valid token", token: valid, secret: testSecret},
		{name: "Wrong secret", token: valid, secret: "other-secret", wantErr: ErrInvalidToken},
		{name: "Garbage", token: "not-a-token", secret: testSecret, wantErr: ErrInvalidToken},
		{name: "Empty", token: "", secret: testSecret, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateSessionToken(tt.token, tt.secret)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, claims.SessionID)
		})
	}
}

func TestExpiredSessionToken(t *testing.T) {
	token, err := GenerateSessionToken(NewSessionID(), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateSessionToken(token, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestSessionTokenRejectsForeignClaims(t *testing.T) {
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		SessionID: "not-a-uuid",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateSessionToken(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		SessionID: NewSessionID(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = otherIssuer.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateSessionToken(signed, testSecret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
