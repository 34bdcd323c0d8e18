package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"golang.org/x/crypto/hkdf"
)

const (
	hashKeyLength  = 64
	blockKeyLength = 32
)

// NewCookieStore は署名と暗号化を行うセッションCookieストアを作成します。
// 署名鍵と暗号鍵は secret から HKDF で導出します。
func NewCookieStore(secret string, secure bool) (cookie.Store, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}

	hashKey, blockKey, err := deriveKeys([]byte(secret))
	if err != nil {
		return nil, err
	}

	store := cookie.NewStore(hashKey, blockKey)
	store.Options(sessions.Options{
		Path: "/",
		// MaxAge を指定せずブラウザを閉じると消えるCookieにする
		MaxAge:   0,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return store, nil
}

func deriveKeys(secret []byte) ([]byte, []byte, error) {
	kdf := hkdf.New(sha256.New, secret, nil, []byte("authgate session cookie"))

	hashKey := make([]byte, hashKeyLength)
	if _, err := io.ReadFull(kdf, hashKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive hash key: %w", err)
	}
	blockKey := make([]byte, blockKeyLength)
	if _, err := io.ReadFull(kdf, blockKey); err != nil {
		return nil, nil, fmt.Errorf("failed to derive block key: %w", err)
	}
	return hashKey, blockKey, nil
}
