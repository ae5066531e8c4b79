package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/middleware"
	"tecbook-auth/internal/token"
)

// Logout revokes the presented token. It answers 200 in every case,
// including internal failures, so a client can always end its session.
func (h *Handler) Logout(c *gin.Context) {
	invalidated := false

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("logout panicked", map[string]any{"panic": fmt.Sprint(rec)})
			c.JSON(http.StatusOK, gin.H{
				"message":          "Error al cerrar sesión, pero sesión terminada",
				"tokenInvalidated": false,
				"timestamp":        time.Now().UnixMilli(),
			})
		}
		if h.metrics != nil {
			h.metrics.Logouts.WithLabelValues(strconv.FormatBool(invalidated)).Inc()
		}
	}()

	raw, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		logger.Info("logout without token", nil)
		c.JSON(http.StatusOK, gin.H{
			"message":          "Sesión cerrada (sin token activo)",
			"tokenInvalidated": false,
			"timestamp":        time.Now().UnixMilli(),
		})
		return
	}

	email := h.subjectOf(raw)

	if err := h.tokens.Blacklist(raw); err != nil {
		logger.Error("logout: revocation failed", map[string]any{"error": err.Error()})
		c.JSON(http.StatusOK, gin.H{
			"message":          "Error al cerrar sesión, pero sesión terminada",
			"tokenInvalidated": false,
			"userEmail":        email,
			"timestamp":        time.Now().UnixMilli(),
		})
		return
	}
	invalidated = true

	logger.Info("token revoked", map[string]any{"email": email})

	c.JSON(http.StatusOK, gin.H{
		"message":          "Sesión cerrada correctamente",
		"tokenInvalidated": true,
		"userEmail":        email,
		"timestamp":        time.Now().UnixMilli(),
		"stats":            h.tokens.Stats(),
	})
}

// TokenStatus reports what the service thinks of the presented token.
func (h *Handler) TokenStatus(c *gin.Context) {
	raw, ok := middleware.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"isValid":       false,
			"isBlacklisted": false,
			"error":         "No token provided",
		})
		return
	}

	_, err := h.tokens.Check(raw)
	resp := gin.H{
		"isValid":       err == nil,
		"isBlacklisted": h.tokens.IsBlacklisted(raw),
		"userEmail":     h.subjectOf(raw),
		"timestamp":     time.Now().UnixMilli(),
	}
	if err != nil {
		resp["reason"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// subjectOf returns the token subject when the signature checks out, even
// if the token has expired. Unverifiable tokens yield nil.
func (h *Handler) subjectOf(raw string) any {
	claims, err := h.codec.Verify(raw)
	if err != nil && !errors.Is(err, token.ErrExpired) {
		return nil
	}
	if claims.Subject == "" {
		return nil
	}
	return claims.Subject
}
