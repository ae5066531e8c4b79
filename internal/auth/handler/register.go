package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/auth/credentials"
	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
)

type registerRequest struct {
	Email               string `json:"email"`
	CorreoInstitucional string `json:"correoInstitucional"`
	Password            string `json:"password"`
	Code                string `json:"codigo"`
	FirstName           string `json:"nombres"`
	LastName            string `json:"apellido"`
	Role                string `json:"rol"`
	DepartmentID        int64  `json:"departamentoId"`
	CareerID            *int64 `json:"carreraId"`
	Phone               string `json:"telefono"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Solicitud inválida", "El cuerpo debe ser JSON")
		return
	}

	email := req.Email
	if email == "" {
		email = req.CorreoInstitucional
	}
	email = directory.NormalizeEmail(email)

	if email == "" || req.Password == "" {
		writeError(c, http.StatusBadRequest, "Datos requeridos", "Email y contraseña son requeridos")
		return
	}
	if !h.bridge.AllowedEmail(email) {
		writeError(c, http.StatusBadRequest, "Dominio no permitido", "Solo se permiten correos institucionales")
		return
	}

	role, ok := parseRole(req.Role)
	if !ok {
		writeError(c, http.StatusBadRequest, "Rol inválido", "Rol desconocido: "+req.Role)
		return
	}

	acc, err := h.credentials.Register(c.Request.Context(), credentials.Registration{
		Email:        email,
		Password:     req.Password,
		Code:         req.Code,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		DepartmentID: req.DepartmentID,
		CareerID:     req.CareerID,
		Phone:        req.Phone,
	})
	switch {
	case errors.Is(err, credentials.ErrAlreadyRegistered):
		writeError(c, http.StatusConflict, "Usuario existente", "Ya existe una cuenta con ese email")
		return
	case errors.Is(err, credentials.ErrPasswordTooShort):
		writeError(c, http.StatusBadRequest, "Contraseña inválida", "La contraseña debe tener al menos 8 caracteres")
		return
	case errors.Is(err, credentials.ErrInvalidEmail):
		writeError(c, http.StatusBadRequest, "Email inválido", "El email no es válido")
		return
	case err != nil:
		logger.Error("registration failed", map[string]any{"email": email, "error": err.Error()})
		writeError(c, http.StatusInternalServerError, "Error interno", "No se pudo registrar el usuario")
		return
	}

	logger.Info("account registered", map[string]any{"email": acc.Email, "role": acc.Role})
	c.JSON(http.StatusCreated, newUserView(acc))
}

// parseRole accepts the role in any case; empty means student.
// Administrators are never self-registered.
func parseRole(s string) (directory.Role, bool) {
	switch directory.Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", directory.RoleStudent:
		return directory.RoleStudent, true
	case directory.RoleTeacher:
		return directory.RoleTeacher, true
	default:
		return "", false
	}
}
