package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func sign(t *testing.T, secret string, c claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func validClaims() claims {
	var c claims
	c.Subject = "5f1c8a52-7a55-4a43-9d2b-0cfb1c2e9a10"
	c.Email = "ana@example.com"
	c.UserMetadata.Name = "Ana"
	c.Audience = jwt.ClaimStrings{"authenticated"}
	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	return c
}

func TestVerify(t *testing.T) {
	v := NewVerifier("secret", "authenticated")

	t.Run("valid_token", func(t *testing.T) {
		raw := sign(t, "secret", validClaims())
		p, err := v.Verify(raw)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if p.ID != "5f1c8a52-7a55-4a43-9d2b-0cfb1c2e9a10" {
			t.Errorf("ID = %q", p.ID)
		}
		if p.Email != "ana@example.com" || p.Name != "Ana" {
			t.Errorf("Email/Name = %q/%q", p.Email, p.Name)
		}
		if p.Token != raw {
			t.Error("Token should carry the raw credential")
		}
	})

	t.Run("empty_token", func(t *testing.T) {
		if _, err := v.Verify(""); !errors.Is(err, ErrNoSession) {
			t.Errorf("err = %v, want ErrNoSession", err)
		}
	})

	t.Run("wrong_secret", func(t *testing.T) {
		if _, err := v.Verify(sign(t, "other", validClaims())); err == nil {
			t.Error("expected signature error")
		}
	})

	t.Run("expired", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		if _, err := v.Verify(sign(t, "secret", c)); err == nil {
			t.Error("expected expiry error")
		}
	})

	t.Run("missing_expiry", func(t *testing.T) {
		c := validClaims()
		c.ExpiresAt = nil
		if _, err := v.Verify(sign(t, "secret", c)); err == nil {
			t.Error("expected error for token without exp")
		}
	})

	t.Run("wrong_audience", func(t *testing.T) {
		c := validClaims()
		c.Audience = jwt.ClaimStrings{"anon"}
		if _, err := v.Verify(sign(t, "secret", c)); err == nil {
			t.Error("expected audience error")
		}
	})

	t.Run("missing_subject", func(t *testing.T) {
		c := validClaims()
		c.Subject = ""
		if _, err := v.Verify(sign(t, "secret", c)); err == nil {
			t.Error("expected error for empty subject")
		}
	})

	t.Run("wrong_algorithm", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims()).SignedString([]byte("secret"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := v.Verify(tok); err == nil {
			t.Error("expected error for HS512 token")
		}
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"Bearer   ", "", false},
		{"Basic c2VjcmV0", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := BearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("empty context should carry no principal")
	}
	ctx := WithPrincipal(context.Background(), &Principal{ID: "u1"})
	p, ok := FromContext(ctx)
	if !ok || p.ID != "u1" {
		t.Errorf("FromContext = %v, %v", p, ok)
	}
}
