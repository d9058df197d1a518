package jwt

import (
	"errors"
	"time"

	customErrors "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/MoonyAndStarry/video-service/internal/domain/auth/jwt"
	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const leeway = 30 * time.Second

type JwtUtilImpl struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
}

func NewJWTUtil(cfg *config.Config) (*JwtUtilImpl, error) {
	if cfg.AccessTokenSecret == "" || cfg.RefreshTokenSecret == "" {
		return nil, customErrors.WrapInternal(errors.New("token secrets are not configured"), "NewJWTUtil")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, customErrors.WrapInternal(errors.New("access and refresh secrets must differ"), "NewJWTUtil")
	}

	return &JwtUtilImpl{
		accessSecret:  []byte(cfg.AccessTokenSecret),
		refreshSecret: []byte(cfg.RefreshTokenSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		issuer:        cfg.Issuer,
		audience:      cfg.Audience,
	}, nil
}

func (j *JwtUtilImpl) registered(userID uuid.UUID, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	rc := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	if j.audience != "" {
		rc.Audience = jwt.ClaimStrings{j.audience}
	}
	return rc
}

func (j *JwtUtilImpl) GenerateAccessToken(userID uuid.UUID) (token string, exp time.Time, jti string, err error) {
	claims := jwt2.AccessClaims{RegisteredClaims: j.registered(userID, j.accessTTL)}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", time.Time{}, "", customErrors.WrapInternal(err, "sign access token")
	}

	return signed, claims.ExpiresAt.Time, claims.ID, nil
}

func (j *JwtUtilImpl) GenerateRefreshToken(userID uuid.UUID) (token string, exp time.Time, jti string, err error) {
	claims := jwt2.RefreshClaims{RegisteredClaims: j.registered(userID, j.refreshTTL)}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", time.Time{}, "", customErrors.WrapInternal(err, "sign refresh token")
	}

	return signed, claims.ExpiresAt.Time, claims.ID, nil
}

func (j *JwtUtilImpl) parserOptions() []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(j.audience))
	}
	return opts
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	var claims jwt2.AccessClaims
	if err := j.parse(raw, &claims, j.accessSecret); err != nil {
		return jwt2.AccessClaims{}, err
	}
	return claims, nil
}

func (j *JwtUtilImpl) ValidateRefreshToken(raw string) (jwt2.RefreshClaims, error) {
	var claims jwt2.RefreshClaims
	if err := j.parse(raw, &claims, j.refreshSecret); err != nil {
		return jwt2.RefreshClaims{}, err
	}
	return claims, nil
}

func (j *JwtUtilImpl) parse(raw string, claims jwt.Claims, secret []byte) error {
	if raw == "" {
		return customErrors.NewInvalidToken(errors.New("token is empty"))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, j.parserOptions()...)
	if err != nil {
		return customErrors.NewInvalidToken(reason(err))
	}
	if !token.Valid {
		return customErrors.NewInvalidToken(errors.New("token is not valid"))
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return customErrors.NewInvalidToken(errors.New("token has no subject"))
	}
	if _, err := uuid.Parse(sub); err != nil {
		return customErrors.NewInvalidToken(errors.New("token subject is not a user id"))
	}
	return nil
}

// reason collapses jwt's error chain to one of a few stable diagnostics.
func reason(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return jwt.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return jwt.ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		return jwt.ErrTokenMalformed
	default:
		return err
	}
}
