package guard

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// allowedAgents の何れかを User-Agent に含むリクエストのみ受け付けます。
// User-Agent は容易に偽装できるため、セキュリティ対策としては扱いません。
var allowedAgents = []string{"Firefox", "Chrome", "Safari"}

// CheckOrigin は User-Agent が既知のブラウザのものかを判定します。
func CheckOrigin(userAgent string) bool {
	for _, agent := range allowedAgents {
		if strings.Contains(userAgent, agent) {
			return true
		}
	}
	return false
}

// VerifyOrigin は User-Agent を検証し、拒否した場合は reject に処理を渡すミドルウェアです。
func VerifyOrigin(reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CheckOrigin(c.GetHeader("User-Agent")) {
			c.Next()
			return
		}
		reject(c)
		c.Abort()
	}
}
