package auth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("登录态无效")

// Claims 网关和中间件共用的身份信息
type Claims struct {
	UserID int64
	Role   string
}

// ParseToken 校验 JWT 并取出用户身份
// sub 是用户ID，role 缺省按普通用户处理
func ParseToken(secret, tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	role, _ := mapClaims["role"].(string)

	return &Claims{UserID: userID, Role: role}, nil
}
