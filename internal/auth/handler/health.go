package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	stats := h.tokens.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":             "UP",
		"blacklistedTokens":  stats.Blacklisted,
		"expiredTokensCache": stats.ExpiredCached,
		"providers":          h.providers.Names(),
		"timestamp":          time.Now().UnixMilli(),
	})
}
