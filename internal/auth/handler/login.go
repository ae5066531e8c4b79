package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/auth/credentials"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
)

type loginRequest struct {
	Email               string `json:"email"`
	CorreoInstitucional string `json:"correoInstitucional"`
	Password            string `json:"password"`
}

func (r loginRequest) email() string {
	if r.Email != "" {
		return r.Email
	}
	return r.CorreoInstitucional
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Solicitud inválida", "El cuerpo debe ser JSON")
		return
	}

	email := directory.NormalizeEmail(req.email())
	if email == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "Credenciales requeridas", "Email y contraseña son requeridos")
		return
	}

	acc, err := h.credentials.Authenticate(c.Request.Context(), email, req.Password)
	switch {
	case errors.Is(err, credentials.ErrInvalidCredentials):
		logger.Warn("login failed", map[string]any{"email": email})
		writeError(c, http.StatusUnauthorized, "Credenciales inválidas", "Email o contraseña incorrectos")
		return
	case errors.Is(err, directory.ErrInactive):
		logger.Warn("login rejected: inactive", map[string]any{"email": email})
		writeError(c, http.StatusForbidden, "Cuenta desactivada", "Tu cuenta ha sido desactivada")
		return
	case err != nil:
		logger.Error("login error", map[string]any{"email": email, "error": err.Error()})
		writeError(c, http.StatusInternalServerError, "Error interno", "No se pudo completar el inicio de sesión")
		return
	}

	tok, err := h.codec.Sign(acc.Email, h.codec.Now())
	if err != nil {
		logger.Error("token signing failed", map[string]any{"email": email, "error": err.Error()})
		writeError(c, http.StatusInternalServerError, "Error interno", "No se pudo generar el token")
		return
	}
	if h.metrics != nil {
		h.metrics.TokensIssued.WithLabelValues("password").Inc()
	}

	logger.Info("login succeeded", map[string]any{"email": acc.Email})

	c.JSON(http.StatusOK, gin.H{
		"token":     tok,
		"type":      "Bearer",
		"user":      newUserView(acc),
		"timestamp": time.Now().UnixMilli(),
	})
}
