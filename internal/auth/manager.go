// Package auth はセッション管理と認証ミドルウェアを提供します。
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/user"
)

const (
	SessionCookieName   = "session"
	sessionKeyUser      = "user_id"
	sessionKeyExpiresAt = "expires_at"
	sessionKeyCSRF      = "csrf_token"

	// CSRFFormField はフォームに埋め込む CSRF トークンのフィールド名です。
	CSRFFormField = "_csrf"
	csrfHeader    = "X-CSRF-Token"

	// LoginPath は未ログイン時のリダイレクト先です。
	LoginPath = "/login"
)

var (
	defaultSessionDuration = 30 * time.Minute
	defaultActiveDuration  = 5 * time.Minute
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーを共有するためのキーです。
const ContextUserKey = "auth.user"

// Manager はセッションと認証の状態をまとめた構造体です。
type Manager struct {
	users  user.Store
	logger *zap.Logger
	now    func() time.Time

	duration       time.Duration
	activeDuration time.Duration
}

// Option は Manager の設定を変更します。
type Option func(*Manager)

// WithClock は現在時刻の取得方法を差し替えます。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLifetime はセッションの有効期間と延長幅を変更します。
func WithLifetime(duration, active time.Duration) Option {
	return func(m *Manager) {
		m.duration = duration
		m.activeDuration = active
	}
}

// NewManager は認証マネージャーを作成します。
func NewManager(users user.Store, logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		users:          users,
		logger:         logger,
		now:            time.Now,
		duration:       defaultSessionDuration,
		activeDuration: defaultActiveDuration,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login は新しいセッションを開始します。既存の内容は破棄し、CSRF トークンも再発行します。
func (m *Manager) Login(c *gin.Context, u *user.User) error {
	token, err := generateToken()
	if err != nil {
		return err
	}

	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionKeyUser, u.ID)
	session.Set(sessionKeyExpiresAt, m.now().Add(m.duration).Unix())
	session.Set(sessionKeyCSRF, token)
	return session.Save()
}

// Logout はセッションを破棄します。
func (m *Manager) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// SessionUserID はセッションに保存されたユーザーIDを返します。
func (m *Manager) SessionUserID(c *gin.Context) string {
	userID, _ := sessions.Default(c).Get(sessionKeyUser).(string)
	return userID
}

// SessionExpiry はセッションの有効期限を返します。ログインしていなければゼロ値です。
func (m *Manager) SessionExpiry(c *gin.Context) time.Time {
	return readUnix(sessions.Default(c).Get(sessionKeyExpiresAt))
}

// CurrentUser は VerifySession が設定したユーザーを返します。
func CurrentUser(c *gin.Context) *user.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}

// CSRFToken はセッションの CSRF トークンを返します。未発行の場合は発行して保存します。
func (m *Manager) CSRFToken(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if token, ok := session.Get(sessionKeyCSRF).(string); ok && token != "" {
		return token, nil
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
