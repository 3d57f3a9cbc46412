package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/storelane/api/config"
	"github.com/storelane/api/internal/constants"
	"github.com/storelane/api/internal/model"
)

// TokenService is the token codec: it mints signed access tokens, generates
// opaque refresh tokens, and hashes refresh tokens for storage and
// comparison. It is stateless; validity of an access token is fully
// determined by its signature and expiry.
type TokenService struct {
	cfg config.JWTConfig
}

// NewTokenService builds the codec. An empty signing key is a configuration
// error and must abort startup.
func NewTokenService(cfg config.JWTConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt signing key is not configured")
	}
	return &TokenService{cfg: cfg}, nil
}

// CreateAccessToken mints a signed HS256 token for the user. Claims carry
// the subject id, username, a fresh random token id, and one roles claim
// listing every role. Expiry is the configured access-token duration from
// now.
func (s *TokenService) CreateAccessToken(user *model.User, roles []string) (string, error) {
	now := time.Now().UTC()

	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"uid":      user.ID,
		"username": user.Username,
		"jti":      uuid.NewString(),
		"roles":    roles,
		"iss":      s.cfg.Issuer,
		"aud":      s.cfg.Audience,
		"iat":      now.Unix(),
		"exp":      now.Add(s.cfg.AccessTokenDuration).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}

// GenerateRefreshToken creates an opaque refresh token: a cryptographically
// random raw value handed to the caller exactly once, and its sha256 digest
// which is all that ever gets stored.
func (s *TokenService) GenerateRefreshToken() (*model.RefreshToken, error) {
	raw := make([]byte, constants.RefreshTokenByteLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	rawValue := base64.URLEncoding.EncodeToString(raw)
	now := time.Now().UTC()

	return &model.RefreshToken{
		TokenHash: s.HashRefreshToken(rawValue),
		Raw:       rawValue,
		ExpiresOn: now.Add(s.cfg.RefreshTokenDuration),
		CreatedOn: now,
	}, nil
}

// HashRefreshToken computes the one-way digest of a raw refresh token. The
// same digest is used at generation and validation time.
func (s *TokenService) HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// ValidateAccessToken parses and verifies a signed access token and returns
// its claims. Used by the HTTP middleware.
func (s *TokenService) ValidateAccessToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(
		tokenString,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return []byte(s.cfg.Secret), nil
		},
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
