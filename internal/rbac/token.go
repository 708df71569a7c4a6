package rbac

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/EdwinEstrella/FacturaDo-Taller-sub000/internal/shared"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Capabilities map[string]bool `json:"caps,omitempty"`
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService constructs TokenService.
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for principal.
func (s *TokenService) Issue(p shared.Principal) (string, error) {
	if p.IsZero() || !p.Role.Valid() {
		return "", shared.Invalid("principal requires user id and a known role")
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Name:         p.Name,
		Role:         string(p.Role),
		Capabilities: p.Capabilities,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies raw and returns the principal it carries.
func (s *TokenService) Parse(raw string) (shared.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return shared.Principal{}, ErrExpiredToken
		}
		return shared.Principal{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return shared.Principal{}, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return shared.Principal{}, ErrInvalidToken
	}
	role := shared.Role(claims.Role)
	if !role.Valid() {
		return shared.Principal{}, ErrInvalidToken
	}
	return shared.Principal{UserID: userID, Name: claims.Name, Role: role, Capabilities: claims.Capabilities}, nil
}
