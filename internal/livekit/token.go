package livekit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VideoGrant is the LiveKit access grant embedded in the token.
type VideoGrant struct {
	Room         string `json:"room"`
	RoomJoin     bool   `json:"roomJoin"`
	CanPublish   bool   `json:"canPublish"`
	CanSubscribe bool   `json:"canSubscribe"`
}

type accessClaims struct {
	jwt.RegisteredClaims
	Video VideoGrant `json:"video"`
	Name  string     `json:"name,omitempty"`
}

// GenerateAccessToken builds a LiveKit room access token signed with
// the API secret (HS256, iss = API key, sub = participant identity).
// Publishers are teachers; students join subscribe-only.
func GenerateAccessToken(apiKey, apiSecret, room, identity, name string, canPublish bool, ttl time.Duration) (string, error) {
	if apiKey == "" || apiSecret == "" {
		return "", fmt.Errorf("livekit credentials not configured")
	}
	now := time.Now()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Video: VideoGrant{
			Room:         room,
			RoomJoin:     true,
			CanPublish:   canPublish,
			CanSubscribe: true,
		},
		Name: name,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(apiSecret))
}
