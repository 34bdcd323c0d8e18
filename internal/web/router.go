// Package web は画面のルーティングとハンドラーを提供します。
package web

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/authgate/internal/account"
	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/guard"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// staticPrefix は埋め込みの静的ファイルを配信するパスです。
const staticPrefix = "/public"

// Options はルーターの依存関係です。
type Options struct {
	Accounts     *account.Service
	Sessions     *auth.Manager
	SessionStore sessions.Store
	Logger       *zap.Logger
	// HSTS は Strict-Transport-Security を付与するかどうかです（HTTPS 配信時）。
	HSTS bool
}

// NewRouter はミドルウェアとルートを配線した gin.Engine を返します。
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Accounts == nil || opts.Sessions == nil || opts.SessionStore == nil {
		return nil, errors.New("accounts, sessions and session store are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}

	h := &Handler{
		accounts: opts.Accounts,
		sessions: opts.Sessions,
		logger:   logger,
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)

	// 順序: ログ → panic 回復 → ヘッダー → User-Agent チェック → エラーページ → セッション
	router.Use(
		requestLogger(logger),
		recovery(logger),
		securityHeaders(opts.HSTS),
		guard.VerifyOrigin(h.BadOrigin),
		errorPages(logger),
		sessions.Sessions(auth.SessionCookieName, opts.SessionStore),
		opts.Sessions.TrackSession(),
	)

	router.StaticFS(staticPrefix, http.FS(static))

	router.GET("/", h.Index)
	router.GET("/login", h.LoginPage)
	router.GET("/register", h.RegisterPage)
	router.GET("/dashboard",
		opts.Sessions.VerifySession(),
		opts.Sessions.RequireLogin(),
		h.Dashboard,
	)

	forms := router.Group("")
	forms.Use(opts.Sessions.VerifyCSRF())
	{
		forms.POST("/register", h.Register)
		forms.POST("/login", h.Login)
		forms.POST("/logout", h.Logout)
	}

	router.NoRoute(h.NotFound)
	return router, nil
}
