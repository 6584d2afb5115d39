package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenMalformed = errors.New("token malformed")
)

// TokenConfig holds the process-wide signing secrets and expiry policy.
// It is built once at startup and never mutated afterwards, so token
// operations are safe under any amount of request concurrency.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenService mints and verifies the two session token classes. Access
// and refresh tokens are signed with distinct secrets so compromising
// one class never forges the other.
type TokenService struct {
	cfg TokenConfig
}

func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{cfg: cfg}
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

type sessionClaims struct {
	jwt.RegisteredClaims
	Identity Identity `json:"identity"`
}

func (s *TokenService) IssueAccess(identity Identity) (string, error) {
	return signIdentity(identity, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

func (s *TokenService) IssueRefresh(identity Identity) (string, error) {
	return signIdentity(identity, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func signIdentity(identity Identity, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Identity: identity,
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *TokenService) VerifyAccess(tokenString string) (Identity, error) {
	return verifyIdentity(tokenString, s.cfg.AccessSecret)
}

func (s *TokenService) VerifyRefresh(tokenString string) (Identity, error) {
	return verifyIdentity(tokenString, s.cfg.RefreshSecret)
}

// verifyIdentity checks the signature and expiry of a signed token and
// returns the embedded identity. Failures collapse into three terminal
// kinds; none are retriable. No clock-skew leeway is applied.
func verifyIdentity(tokenString string, secret []byte) (Identity, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Identity{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Identity{}, ErrTokenSignature
		default:
			return Identity{}, ErrTokenMalformed
		}
	}
	if !token.Valid {
		return Identity{}, ErrTokenSignature
	}

	return claims.Identity, nil
}
