package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/account"
	"github.com/yourusername/authgate/internal/auth"
)

// Handler は画面系のハンドラーをまとめた構造体です。
type Handler struct {
	accounts *account.Service
	sessions *auth.Manager
	logger   *zap.Logger
}

// Index は GET / のハンドラーです。ログイン済みならダッシュボードへリダイレクトします。
func (h *Handler) Index(c *gin.Context) {
	if h.sessions.SessionUserID(c) != "" {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "index.html", nil)
}

// LoginPage は GET /login のハンドラーです。
func (h *Handler) LoginPage(c *gin.Context) {
	h.renderForm(c, "login.html", "")
}

// RegisterPage は GET /register のハンドラーです。
func (h *Handler) RegisterPage(c *gin.Context) {
	h.renderForm(c, "register.html", "")
}

// Register は POST /register のハンドラーです。
// 成功時はセッションを作らずにログイン画面へリダイレクトします。
func (h *Handler) Register(c *gin.Context) {
	err := h.accounts.Register(c.Request.Context(), account.RegisterInput{
		Email:    c.PostForm("email"),
		Nickname: c.PostForm("nickname"),
		Password: c.PostForm("password"),
	})
	if err != nil {
		h.renderForm(c, "register.html", account.Message(err))
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath)
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	u, err := h.accounts.Authenticate(c.Request.Context(), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		h.renderForm(c, "login.html", account.Message(err))
		return
	}

	if err := h.sessions.Login(c, u); err != nil {
		h.logger.Error("failed to start session", zap.Error(err))
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout は POST /logout のハンドラーです。
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.logger.Error("failed to clear session", zap.Error(err))
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusFound, auth.LoginPath)
}

// Dashboard は GET /dashboard のハンドラーです。RequireLogin の後に配置します。
func (h *Handler) Dashboard(c *gin.Context) {
	u := auth.CurrentUser(c)
	token, err := h.sessions.CSRFToken(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"nickname":  u.Nickname,
		"csrfToken": token,
	})
}

// NotFound は未定義のパスに対するハンドラーです。
func (h *Handler) NotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "404.html", nil)
}

// BadOrigin は User-Agent チェックで拒否したリクエストに返すページです。
func (h *Handler) BadOrigin(c *gin.Context) {
	c.HTML(http.StatusForbidden, "bad_origin.html", nil)
}

// renderForm はエラーメッセージと CSRF トークン付きでフォームを表示します。
func (h *Handler) renderForm(c *gin.Context, name, message string) {
	token, err := h.sessions.CSRFToken(c)
	if err != nil {
		h.logger.Error("failed to issue csrf token", zap.Error(err))
		_ = c.Error(err)
		return
	}
	c.HTML(http.StatusOK, name, gin.H{
		"csrfToken": token,
		"error":     message,
	})
}
