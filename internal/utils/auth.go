package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/terralima/portalgo/internal/models"
)

// sessions last 30 days, matching the portal's login policy
const sessionTTL = 30 * 24 * time.Hour

// GenerateSessionToken issues the signed session JWT handed out after
// code verification or salesperson login
func GenerateSessionToken(user models.SessionUser, secret string) (string, error) {
	claims := jwt.MapClaims{
		"partner_id": user.PartnerID,
		"name":       user.Name,
		"exp":        time.Now().Add(sessionTTL).Unix(),
	}
	if user.UID != 0 {
		claims["uid"] = user.UID
	}
	if user.DNI != "" {
		claims["dni"] = user.DNI
	}
	if user.Email != "" {
		claims["email"] = user.Email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken parses and validates a token
func ValidateToken(tokenString string, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// SessionFromClaims rebuilds the session user from validated claims
func SessionFromClaims(claims jwt.MapClaims) models.SessionUser {
	user := models.SessionUser{}
	if v, ok := claims["partner_id"].(float64); ok {
		user.PartnerID = int64(v)
	}
	if v, ok := claims["uid"].(float64); ok {
		user.UID = int64(v)
	}
	if v, ok := claims["name"].(string); ok {
		user.Name = v
	}
	if v, ok := claims["dni"].(string); ok {
		user.DNI = v
	}
	if v, ok := claims["email"].(string); ok {
		user.Email = v
	}
	return user
}
