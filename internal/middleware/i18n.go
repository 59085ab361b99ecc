// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/greenproof/greenproof-backend/internal/i18n"
	"github.com/greenproof/greenproof-backend/internal/utils"
)

// I18nMiddleware picks the response language from ?lang or the first
// supported entry of Accept-Language, falling back to defaultLang.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	if defaultLang == "" {
		defaultLang = "en"
	}

	return func(c *gin.Context) {
		lang := defaultLang

		if q := normalizeLang(c.Query("lang")); q != "" && i18n.IsSupported(q) {
			lang = q
		} else if header := c.GetHeader("Accept-Language"); header != "" {
			// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
			for _, part := range strings.Split(header, ",") {
				candidate := normalizeLang(strings.Split(part, ";")[0])
				if candidate != "" && i18n.IsSupported(candidate) {
					lang = candidate
					break
				}
			}
		}

		c.Set(utils.ContextLang, lang)
		c.Next()
	}
}

func normalizeLang(raw string) string {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "zh-TW", "zh-Hant", "zh_TW", "zh-HK":
		return "zh_TW"
	case "en", "en-US", "en-GB":
		return "en"
	}
	if base := strings.SplitN(strings.ReplaceAll(raw, "_", "-"), "-", 2)[0]; base == "en" {
		return "en"
	}
	return raw
}
