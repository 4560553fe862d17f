package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func initSecret(t *testing.T, secret string) {
	t.Helper()
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("JWT_TTL_HOURS", "")
	if err := InitJWTSecret(); err != nil {
		t.Fatalf("init: %v", err)
	}
}

func TestGenerateAndVerifyJWT(t *testing.T) {
	initSecret(t, "unit-test-secret")

	tokenString, err := GenerateJWT(42, "alice@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	token, err := VerifyJWT(tokenString)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("claims type %T", token.Claims)
	}
	if claims["email"] != "alice@example.com" {
		t.Errorf("email claim = %v", claims["email"])
	}
	if uint(claims["user_id"].(float64)) != 42 {
		t.Errorf("user_id claim = %v", claims["user_id"])
	}
}

func TestVerifyJWTRejectsWrongSecret(t *testing.T) {
	initSecret(t, "first-secret")
	tokenString, err := GenerateJWT(1, "a@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	initSecret(t, "second-secret")
	if _, err := VerifyJWT(tokenString); err == nil {
		t.Error("token signed with a different secret should not verify")
	}

	if _, err := VerifyJWT("not.a.token"); err == nil {
		t.Error("garbage should not verify")
	}
}

func TestInitJWTSecretValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if err := InitJWTSecret(); err == nil {
		t.Error("missing JWT_SECRET should be an error")
	}

	t.Setenv("JWT_SECRET", "s")
	t.Setenv("JWT_TTL_HOURS", "zero")
	if err := InitJWTSecret(); err == nil {
		t.Error("non-numeric JWT_TTL_HOURS should be an error")
	}

	t.Setenv("JWT_TTL_HOURS", "-1")
	if err := InitJWTSecret(); err == nil {
		t.Error("negative JWT_TTL_HOURS should be an error")
	}
}

func TestDemoUserEmailIsEnvironmentGated(t *testing.T) {
	t.Setenv("DEMO_TOKEN", "demo-123")
	t.Setenv("DEMO_USER_EMAIL", "")

	t.Setenv("APP_ENV", "production")
	if _, ok := DemoUserEmail("demo-123"); ok {
		t.Error("demo token must never match outside development")
	}

	t.Setenv("APP_ENV", "development")
	email, ok := DemoUserEmail("demo-123")
	if !ok || email != "demo@taskmind.local" {
		t.Errorf("demo lookup = %q, %v", email, ok)
	}

	if _, ok := DemoUserEmail("wrong-token"); ok {
		t.Error("wrong token should not match")
	}

	t.Setenv("DEMO_TOKEN", "")
	if _, ok := DemoUserEmail(""); ok {
		t.Error("empty configured token should never match")
	}
}
