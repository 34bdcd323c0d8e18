package guard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  Fields
		wantErr string
	}{
		{name: "clean", fields: Fields{Email: "a@b.com", Nickname: "Bob", Password: "longenough1"}},
		{name: "empty fields are skipped", fields: Fields{}},
		{name: "lt in email", fields: Fields{Email: "<a@b.com"}, wantErr: "email"},
		{name: "gt in nickname", fields: Fields{Email: "a@b.com", Nickname: "Bob>"}, wantErr: "nickname"},
		{name: "quote in password", fields: Fields{Password: "pass'word"}, wantErr: "password"},
		{name: "percent in password", fields: Fields{Password: "100%secure"}, wantErr: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFields(tt.fields)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.wantErr {
				t.Fatalf("Field = %q, want %q", vErr.Field, tt.wantErr)
			}
			if vErr.Message != MsgDisallowedChars {
				t.Fatalf("Message = %q", vErr.Message)
			}
		})
	}
}

func TestCheckPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantMsg  string
	}{
		{"", MsgPasswordShort},
		{"short12", MsgPasswordShort},
		{"exactly8", ""},
		{"ぱすわーどです!", ""},
		{strings.Repeat("a", 73), MsgPasswordLong},
	}

	for _, tt := range tests {
		err := CheckPasswordStrength(tt.password)
		if tt.wantMsg == "" {
			if err != nil {
				t.Fatalf("CheckPasswordStrength(%q) returned error: %v", tt.password, err)
			}
			continue
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Message != tt.wantMsg {
			t.Fatalf("CheckPasswordStrength(%q) = %v, want %q", tt.password, err, tt.wantMsg)
		}
	}
}

func TestRequireFields(t *testing.T) {
	if err := RequireFields("a@b.com", "Bob"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireFields("a@b.com", "  "); err == nil {
		t.Fatal("expected error for blank field")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		ua   string
		want bool
	}{
		{"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", true},
		{"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", true},
		{"Mozilla/5.0 (Macintosh) AppleWebKit/605.1.15 Version/17.0 Safari/605.1.15", true},
		{"curl/8.4.0", false},
		{"mozilla firefox", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := CheckOrigin(tt.ua); got != tt.want {
			t.Fatalf("CheckOrigin(%q) = %v, want %v", tt.ua, got, tt.want)
		}
	}
}

func TestVerifyOriginMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(VerifyOrigin(func(c *gin.Context) {
		c.String(http.StatusForbidden, "bad origin")
	}))
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "curl/8.4.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || rec.Body.String() != "bad origin" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "Firefox/120.0")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected response: %d %q", rec.Code, rec.Body.String())
	}
}
