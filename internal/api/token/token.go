package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 签名校验失败、令牌损坏或已过期。
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken 令牌合法但缺少用户标识。
	ErrMalformedToken = errors.New("malformed token payload")
)

// Identity 是验证通过后的令牌身份。
type Identity struct {
	UserID    uint      // 用户 ID
	TokenID   string    // 令牌 jti，用于吊销
	ExpiresAt time.Time // 令牌过期时间
}

// Service 负责签发与校验身份令牌。
//
// 令牌只做签名不做加密，载荷中除用户 ID 外不携带任何敏感信息。
type Service struct {
	secret []byte
	ttl    time.Duration
}

// NewService 创建令牌服务。ttl 为 0 时使用 24 小时。
func NewService(secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue 为指定用户签发一个带过期时间的 HS256 令牌。
func (s *Service) Issue(userID uint) (string, error) {
	jti, err := randomID(16)
	if err != nil {
		return "", fmt.Errorf("generate jti: %w", err)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// Verify 校验令牌并返回其身份。
//
// 签名错误、过期、无法解析返回 ErrInvalidToken；
// 载荷缺少用户 ID 或 ID 不是十进制数返回 ErrMalformedToken。
func (s *Service) Verify(tokenStr string) (*Identity, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrMalformedToken
	}

	ident := &Identity{
		UserID:  uint(uid),
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

func randomID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
