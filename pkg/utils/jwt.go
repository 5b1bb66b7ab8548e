package utils

import (
	"errors"
	"time"

	"github.com/manmiddle614-crypto/backend/internal/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// 员工角色
const (
	RoleScanner = 1 // 食堂扫码员
	RoleAdmin   = 2 // 租户管理员，可强制指定餐别
)

// Claims 自定义JWT Claims
type Claims struct {
	StaffID  string `json:"staff_id"`
	TenantID string `json:"tenant_id"`
	Role     int    `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 生成JWT Token
func GenerateToken(staffID, tenantID string, role int) (string, *time.Time, error) {
	expire := config.GlobalConfig.JWT.Expire
	if expire <= 0 {
		expire = 24
	}
	expireTime := time.Now().Add(time.Duration(expire) * time.Hour)

	claims := Claims{
		StaffID:  staffID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireTime),
			Issuer:    "mess-meal",
			Subject:   staffID,
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := tokenClaims.SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", nil, err
	}
	return token, &expireTime, nil
}

// ParseToken 验证JWT Token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(config.GlobalConfig.JWT.Secret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TenantID == "" || claims.StaffID == "" {
		return nil, errors.New("token missing tenant or staff")
	}
	return claims, nil
}
