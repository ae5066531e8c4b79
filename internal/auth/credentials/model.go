package credentials

import "tecbook-auth/internal/directory"

// Registration is the input of a direct-credential sign up.
type Registration struct {
	Email        string
	Password     string
	Code         string
	FirstName    string
	LastName     string
	Role         directory.Role
	DepartmentID int64
	CareerID     *int64
	Phone        string
}
