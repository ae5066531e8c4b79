package handler

import (
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tecbook-auth/internal/directory"
	"tecbook-auth/internal/middleware"
)

func writeError(c *gin.Context, status int, label, message string) {
	c.JSON(status, middleware.ErrorBody{
		Error:     label,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	})
}

// userView is the account as returned to the frontend. The Spanish field
// names are what the web client reads; the aliases are kept for older pages.
type userView struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Code            string    `json:"codigo"`
	FirstName       string    `json:"nombres"`
	LastName        string    `json:"apellido"`
	Role            string    `json:"rol"`
	DepartmentID    int64     `json:"departamentoId"`
	CareerID        *int64    `json:"carreraId"`
	Phone           string    `json:"telefono"`
	Address         string    `json:"direccion"`
	AvatarURL       string    `json:"profileImageUrl"`
	Active          bool      `json:"activo"`
	RegisteredAt    time.Time `json:"fechaRegistro"`
	ProfileComplete bool      `json:"perfilCompleto"`
	LegacyFirstName string    `json:"nombre"`
	LegacyLastName  string    `json:"apellidos"`
	LegacyEmail     string    `json:"correoInstitucional"`
}

func newUserView(a directory.Account) userView {
	role := a.Role
	if role == "" {
		role = directory.RoleStudent
	}
	return userView{
		ID:              a.ID.String(),
		Email:           a.Email,
		Code:            a.Code,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Role:            strings.ToUpper(string(role)),
		DepartmentID:    a.DepartmentID,
		CareerID:        a.CareerID,
		Phone:           a.Phone,
		Address:         a.Address,
		AvatarURL:       a.AvatarURL,
		Active:          a.Active,
		RegisteredAt:    a.RegisteredAt,
		ProfileComplete: !a.NeedsProfileCompletion(),
		LegacyFirstName: a.FirstName,
		LegacyLastName:  a.LastName,
		LegacyEmail:     a.Email,
	}
}

func hasToken(target string) bool {
	u, err := url.Parse(target)
	return err == nil && u.Query().Get("token") != ""
}
