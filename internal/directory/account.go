package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent Role = "alumno"
	RoleTeacher Role = "profesor"
	RoleAdmin   Role = "administrador"
)

// DefaultDepartmentID is assigned to accounts created without one.
const DefaultDepartmentID int64 = 1

// Account is a platform user as seen by the auth core.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Code         string    `json:"code"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	DepartmentID int64     `json:"departmentId"`
	CareerID     *int64    `json:"careerId,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Authorities returns the role grants attached to an authenticated request.
func (a Account) Authorities() []string {
	role := a.Role
	if role == "" {
		role = RoleStudent
	}
	return []string{"ROLE_" + strings.ToUpper(string(role))}
}

// NeedsProfileCompletion reports whether a student still has to pick a career.
func (a Account) NeedsProfileCompletion() bool {
	return a.Role == RoleStudent && a.CareerID == nil
}

// NormalizeEmail is the key form used by every store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CodeFromEmail derives the account code from the email local part.
func CodeFromEmail(email string) string {
	local, _, _ := strings.Cut(NormalizeEmail(email), "@")
	return local
}
