package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const (
	AccessTokenType        = "access_token"
	PasswordResetTokenType = "password_reset_token"
)

// GenerateToken signs an HS256 access token for a user.
func GenerateToken(userID uint, email string, isAdmin bool, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"id":       userID,
		"email":    email,
		"is_admin": isAdmin,
		"type":     AccessTokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GeneratePasswordResetToken signs a short lived token that only the reset
// endpoint accepts.
func GeneratePasswordResetToken(email string, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}
	claims := jwt.MapClaims{
		"email": email,
		"type":  PasswordResetTokenType,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAndGetClaims verifies the signature and expiry of an access token
// and returns its claims.
func ValidateAndGetClaims(tokenString string, secret string) (jwt.MapClaims, error) {
	return parse(tokenString, secret, AccessTokenType)
}

// ValidatePasswordResetToken returns the email a reset token was issued for.
func ValidatePasswordResetToken(tokenString string, secret string) (string, jwt.MapClaims, error) {
	claims, err := parse(tokenString, secret, PasswordResetTokenType)
	if err != nil {
		return "", nil, err
	}
	email, _ := claims["email"].(string)
	if email == "" {
		return "", nil, fmt.Errorf("invalid email claim")
	}
	return email, claims, nil
}

func parse(tokenString, secret, typ string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if got, _ := claims["type"].(string); got != typ {
		return nil, fmt.Errorf("invalid token type")
	}
	return claims, nil
}

// UserID extracts the numeric user id claim.
func UserID(claims jwt.MapClaims) (uint, error) {
	switch v := claims["id"].(type) {
	case float64:
		return uint(v), nil
	default:
		return 0, fmt.Errorf("invalid user id claim")
	}
}

// ExpiresAt returns the expiry claim as a time.
func ExpiresAt(claims jwt.MapClaims) time.Time {
	if exp, ok := claims["exp"].(float64); ok {
		return time.Unix(int64(exp), 0)
	}
	return time.Time{}
}
