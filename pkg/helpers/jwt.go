package helpers

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates HS256 bearer tokens.
type JWTManager struct {
	Secret    []byte
	Issuer    string
	Audiences []string
	TTL       time.Duration
}

func NewJWTManager(secret, issuer string, audiences []string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		Secret:    []byte(secret),
		Issuer:    issuer,
		Audiences: audiences,
		TTL:       ttl,
	}
}

type Claims struct {
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	UPN               string   `json:"upn,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// PrincipalName picks the first non-empty of name, preferred_username, upn and sub.
func (c *Claims) PrincipalName() string {
	for _, v := range []string{c.Name, c.PreferredUsername, c.UPN, c.Subject} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Generate signs a token for subject carrying name and roles.
func (m *JWTManager) Generate(subject, name string, roles []string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	claims := &Claims{
		Name:  name,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if len(m.Audiences) > 0 {
		claims.Audience = jwt.ClaimStrings{m.Audiences[0]}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Parse validates tokenStr. Issuer and audience are only checked when configured.
func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.Issuer))
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if len(m.Audiences) > 0 && !slices.ContainsFunc(claims.Audience, func(a string) bool {
		return slices.Contains(m.Audiences, a)
	}) {
		return nil, jwt.ErrTokenInvalidAudience
	}
	return claims, nil
}
