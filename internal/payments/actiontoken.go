package payments

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wagmicrew/trafikskolax-backend/internal/models"
)

const (
	DecisionConfirm = "confirm"
	DecisionDeny    = "deny"

	actionTokenType = "payment_action"

	// ActionTokenTTL bounds how long an emailed confirm/deny link stays live.
	// Expiry is the only revocation mechanism for these tokens.
	ActionTokenTTL = 30 * time.Minute
	// ModerationTokenTTL covers the longer-lived moderation page link.
	ModerationTokenTTL = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid action token")
	ErrTokenExpired = errors.New("action token expired")
)

// ActionClaims is the self-contained capability embedded in admin links.
// Anyone holding a valid unexpired token can apply the decision; single use
// is not enforced here, the payment status check downstream defuses replays.
type ActionClaims struct {
	TokenType string `json:"typ"`
	Kind      string `json:"kind"`
	EntityID  string `json:"eid"`
	Decision  string `json:"dec"`
	jwt.RegisteredClaims
}

// SignActionToken mints a confirm or deny token for one payable entity.
func SignActionToken(secret string, kind models.EntityKind, entityID, decision string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("action token secret is required")
	}
	if decision != DecisionConfirm && decision != DecisionDeny {
		return "", errors.New("decision must be confirm or deny")
	}
	if ttl == 0 {
		ttl = ActionTokenTTL
	}
	now := time.Now()
	claims := ActionClaims{
		TokenType: actionTokenType,
		Kind:      string(kind),
		EntityID:  strings.TrimSpace(entityID),
		Decision:  decision,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   "payment",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseActionToken verifies signature and expiry and returns the claims.
// Expired-but-otherwise-valid tokens yield ErrTokenExpired so callers can
// tell the admin the link went stale rather than that it was forged.
func ParseActionToken(secret string, tokenString string) (*ActionClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &ActionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*ActionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != actionTokenType || claims.EntityID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Decision != DecisionConfirm && claims.Decision != DecisionDeny {
		return nil, ErrInvalidToken
	}
	switch models.EntityKind(claims.Kind) {
	case models.KindBooking, models.KindPackage, models.KindTeori:
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}
