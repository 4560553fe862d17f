package auth

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret string
	jwtTTL    = time.Hour * 168
)

func InitJWTSecret() error {
	jwtSecret = os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	if raw := os.Getenv("JWT_TTL_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return fmt.Errorf("invalid JWT_TTL_HOURS: %q", raw)
		}
		jwtTTL = time.Duration(hours) * time.Hour
	}

	return nil
}

func GenerateJWT(userID uint, email string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"email":   email,
		"exp":     time.Now().Add(jwtTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

func VerifyJWT(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("Invalid or expired token")
	}

	return token, nil
}

// DemoUserEmail returns the account a reserved demo token resolves to.
// The bypass only exists in development: outside APP_ENV=development the
// token is never matched, regardless of configuration.
func DemoUserEmail(tokenString string) (string, bool) {
	if os.Getenv("APP_ENV") != "development" {
		return "", false
	}

	demoToken := os.Getenv("DEMO_TOKEN")
	if demoToken == "" || tokenString != demoToken {
		return "", false
	}

	email := os.Getenv("DEMO_USER_EMAIL")
	if email == "" {
		email = "demo@taskmind.local"
	}

	return email, true
}
