package livekit

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken(t *testing.T) {
	token, err := GenerateAccessToken("api-key", "api-secret", "room-1", "user-1", "Asha", true, time.Hour)
	require.NoError(t, err)

	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("api-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	assert.Equal(t, "api-key", claims.Issuer)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, "room-1", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
	assert.True(t, claims.Video.CanPublish)
	assert.True(t, claims.Video.CanSubscribe)
}

func TestGenerateAccessTokenSubscribeOnly(t *testing.T) {
	token, err := GenerateAccessToken("api-key", "api-secret", "room-1", "user-2", "", false, time.Hour)
	require.NoError(t, err)

	var claims accessClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte("api-secret"), nil
	})
	require.NoError(t, err)
	assert.False(t, claims.Video.CanPublish)
	assert.True(t, claims.Video.CanSubscribe)
}

func TestGenerateAccessTokenMissingCredentials(t *testing.T) {
	_, err := GenerateAccessToken("", "", "room-1", "user-1", "", false, time.Hour)
	assert.Error(t, err)
}
