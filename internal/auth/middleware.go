package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/user"
)

// TrackSession はセッションの有効期限を管理するミドルウェアです。
// 期限切れのセッションはログイン状態のみ破棄し、残り時間が延長幅を下回っていれば現在時刻から延長します。
// CSRF トークンは残すため、期限切れ後に開いたままのフォームから送信しても 403 にはなりません。
func (m *Manager) TrackSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID, _ := session.Get(sessionKeyUser).(string); userID == "" {
			c.Next()
			return
		}

		now := m.now()
		expiresAt := readUnix(session.Get(sessionKeyExpiresAt))

		if expiresAt.IsZero() || !now.Before(expiresAt) {
			session.Delete(sessionKeyUser)
			session.Delete(sessionKeyExpiresAt)
			m.save(session)
			c.Next()
			return
		}

		if expiresAt.Sub(now) < m.activeDuration {
			session.Set(sessionKeyExpiresAt, now.Add(m.activeDuration).Unix())
			m.save(session)
		}
		c.Next()
	}
}

// VerifySession はセッションのユーザーIDからユーザーを読み込むミドルウェアです。
// セッションが無い場合やユーザーが存在しない場合は未ログインとして続行し、
// ストアの障害のみをエラーとして扱います。
func (m *Manager) VerifySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := m.SessionUserID(c)
		if userID == "" {
			c.Next()
			return
		}

		u, err := m.users.FindByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				c.Next()
				return
			}
			m.logger.Error("failed to load session user", zap.String("userId", userID), zap.Error(err))
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, u.Sanitized())
		c.Next()
	}
}

// RequireLogin はログイン済みでなければログイン画面へリダイレクトするミドルウェアです。
// VerifySession の後に配置する必要があります。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// VerifyCSRF はフォームの _csrf または X-CSRF-Token ヘッダーを検証するミドルウェアです。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		session := sessions.Default(c)
		expected, _ := session.Get(sessionKeyCSRF).(string)

		received := c.PostForm(CSRFFormField)
		if received == "" {
			received = c.GetHeader(csrfHeader)
		}

		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			m.logger.Warn("csrf token mismatch",
				zap.String("path", c.Request.URL.Path),
				zap.Bool("sessionToken", expected != ""),
			)
			c.String(http.StatusForbidden, "invalid csrf token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func (m *Manager) save(session sessions.Session) {
	if err := session.Save(); err != nil {
		m.logger.Error("failed to save session", zap.Error(err))
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
