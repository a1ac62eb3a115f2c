// Package auth 提供宿主通道认证
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// DevTokenPrefix 开发模式下免校验的 token 前缀
const DevTokenPrefix = "dev_"

// Claims 宿主插件 JWT claims
type Claims struct {
	HostID string `json:"host_id"`
	jwt.RegisteredClaims
}

// JWTValidator JWT 验证器
type JWTValidator struct {
	secretKey []byte
	devMode   bool
}

// NewJWTValidator 创建 JWT 验证器
func NewJWTValidator(secretKey string, devMode bool) *JWTValidator {
	return &JWTValidator{
		secretKey: []byte(secretKey),
		devMode:   devMode,
	}
}

// Validate 验证 JWT token
func (v *JWTValidator) Validate(tokenString string) (*Claims, error) {
	if len(v.secretKey) == 0 {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.HostID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken 生成 JWT token（供 hostclient 与测试使用）
func (v *JWTValidator) GenerateToken(hostID string, expiry time.Duration) (string, error) {
	claims := &Claims{
		HostID: hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secretKey)
}

// Authenticate 认证宿主连接
// 开发模式下 dev_ 前缀 token 直接放行，host_id 取请求中的值
func (v *JWTValidator) Authenticate(tokenString, hostID string) (*Claims, error) {
	if v.devMode && strings.HasPrefix(tokenString, DevTokenPrefix) {
		if hostID == "" {
			return nil, ErrInvalidToken
		}
		return &Claims{HostID: hostID}, nil
	}
	return v.Validate(tokenString)
}
