package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/logger"
	"tecbook-auth/internal/middleware"
)

// currentAccount reloads the caller's account so handlers see writes made
// after the gate ran.
func (h *Handler) currentAccount(c *gin.Context) (directory.Account, bool) {
	p, ok := middleware.GinPrincipal(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "Unauthorized", "Usuario no autenticado")
		return directory.Account{}, false
	}

	acc, err := h.dir.LoadByEmail(c.Request.Context(), p.Account.Email)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		writeError(c, http.StatusNotFound, "Not Found", "Usuario no encontrado")
		return directory.Account{}, false
	case err != nil:
		logger.Error("load current account failed", map[string]any{"email": p.Account.Email, "error": err.Error()})
		writeError(c, http.StatusInternalServerError, "Error del servidor", "No se pudo cargar el usuario")
		return directory.Account{}, false
	case !acc.Active:
		writeError(c, http.StatusForbidden, "Forbidden", "Cuenta desactivada")
		return directory.Account{}, false
	}
	return acc, true
}

func (h *Handler) CurrentUser(c *gin.Context) {
	acc, ok := h.currentAccount(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newUserView(acc))
}

// updateUserRequest carries the profile fields a user may edit. Absent
// fields are left unchanged.
type updateUserRequest struct {
	FirstName    *string `json:"nombres"`
	LastName     *string `json:"apellido"`
	Phone        *string `json:"telefono"`
	Address      *string `json:"direccion"`
	AvatarURL    *string `json:"profileImageUrl"`
	DepartmentID *int64  `json:"departamentoId"`
	CareerID     *int64  `json:"carreraId"`
}

func (r updateUserRequest) apply(acc *directory.Account) {
	if r.FirstName != nil {
		acc.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		acc.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.Phone != nil {
		acc.Phone = strings.TrimSpace(*r.Phone)
	}
	if r.Address != nil {
		acc.Address = strings.TrimSpace(*r.Address)
	}
	if r.AvatarURL != nil {
		acc.AvatarURL = strings.TrimSpace(*r.AvatarURL)
	}
	if r.DepartmentID != nil && *r.DepartmentID > 0 {
		acc.DepartmentID = *r.DepartmentID
	}
	if r.CareerID != nil {
		acc.CareerID = r.CareerID
	}
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Solicitud inválida", "El cuerpo debe ser JSON")
		return
	}

	acc, ok := h.currentAccount(c)
	if !ok {
		return
	}
	req.apply(&acc)

	updated, err := h.dir.Update(c.Request.Context(), acc)
	if err != nil {
		logger.Error("profile update failed", map[string]any{"email": acc.Email, "error": err.Error()})
		writeError(c, http.StatusInternalServerError, "Error del servidor", "No se pudo actualizar el usuario")
		return
	}

	logger.Info("profile updated", map[string]any{"email": updated.Email})
	c.JSON(http.StatusOK, newUserView(updated))
}
