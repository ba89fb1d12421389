package livekit

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

// TokenTTL is the fixed lifetime of a room access token
const TokenTTL = 3600 * time.Second

var ErrInvalidToken = errors.New("invalid room token")

// VideoGrant is the capability grant LiveKit reads from the "video" claim
type VideoGrant struct {
	Room           string `json:"room"`
	RoomJoin       bool   `json:"roomJoin"`
	CanPublish     bool   `json:"canPublish"`
	CanSubscribe   bool   `json:"canSubscribe"`
	CanPublishData bool   `json:"canPublishData"`
}

// Claims is the LiveKit access token payload
type Claims struct {
	Name     string      `json:"name"`
	Video    *VideoGrant `json:"video"`
	Metadata string      `json:"metadata"`
	jwt.RegisteredClaims
}

// Participant describes who the token is issued to
type Participant struct {
	Identity     string
	DisplayName  string
	CanPublish   bool
	CanSubscribe bool
}

// TokenIssuer signs room tokens with a LiveKit API key pair
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	now       func() time.Time
}

// NewTokenIssuer creates an issuer. Missing credentials are reported when a token is issued.
func NewTokenIssuer(apiKey, apiSecret string) *TokenIssuer {
	return &TokenIssuer{apiKey: apiKey, apiSecret: apiSecret, now: time.Now}
}

// WithClock replaces the time source, for tests
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	t.now = now
	return t
}

// Configured reports whether both credentials are present
func (t *TokenIssuer) Configured() bool {
	return t.apiKey != "" && t.apiSecret != ""
}

// Issue signs a token for p in roomName
func (t *TokenIssuer) Issue(roomName string, p Participant) (string, error) {
	return issue(roomName, p, t.apiKey, t.apiSecret, t.now())
}

// IssueToken signs a join token for roomName valid for TokenTTL from now.
// canPublishData is always granted.
func IssueToken(roomName, identity, displayName string, canPublish, canSubscribe bool, apiKey, apiSecret string) (string, error) {
	return issue(roomName, Participant{
		Identity:     identity,
		DisplayName:  displayName,
		CanPublish:   canPublish,
		CanSubscribe: canSubscribe,
	}, apiKey, apiSecret, time.Now())
}

func issue(roomName string, p Participant, apiKey, apiSecret string, now time.Time) (string, error) {
	if apiKey == "" {
		return "", apperr.MissingConfig("LIVEKIT_API_KEY")
	}
	if apiSecret == "" {
		return "", apperr.MissingConfig("LIVEKIT_API_SECRET")
	}

	iat := now.Truncate(time.Second)
	claims := Claims{
		Name: p.DisplayName,
		Video: &VideoGrant{
			Room:           roomName,
			RoomJoin:       true,
			CanPublish:     p.CanPublish,
			CanSubscribe:   p.CanSubscribe,
			CanPublishData: true,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    apiKey,
			Subject:   p.Identity,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(apiSecret))
}

// ParseToken verifies a room token against apiSecret and returns its claims
func ParseToken(tokenString, apiSecret string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(apiSecret), nil
	}, opts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
