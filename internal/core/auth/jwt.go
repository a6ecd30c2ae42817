package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"skillswap/internal/core/config"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	defaultTTL = 2 * time.Hour
	leeway     = time.Minute
)

// Claims 角色以签发时为准；封禁/改角色后旧 token 到期前仍有效，/auth/refresh 换发时才重新核对
type Claims struct {
	UID      string `json:"uid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func NewJWTer(c config.JWT) *JWTer {
	ttl := time.Duration(c.AccessTokenTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &JWTer{Secret: []byte(c.Secret), Issuer: c.Issuer, TTL: ttl}
}

// Issue 签发 HS256 访问令牌，同时返回过期时间给客户端
func (j *JWTer) Issue(uid, username, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(j.TTL)
	claims := Claims{
		UID:      uid,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
	)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UID == "" || c.Subject != c.UID {
		return nil, ErrInvalidToken
	}
	return c, nil
}
