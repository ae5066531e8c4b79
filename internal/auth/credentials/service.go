package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tecbook-auth/internal/directory"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrInvalidEmail       = errors.New("invalid email")
)

type Service struct {
	dir directory.Directory

	// verify is swapped in tests to observe comparisons.
	verify func(hash, password string) error
}

func NewService(dir directory.Directory) *Service {
	return &Service{dir: dir, verify: VerifyPassword}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(
	ctx context.Context,
	reg Registration,
) (directory.Account, error) {

	email := directory.NormalizeEmail(reg.Email)
	if !strings.Contains(email, "@") {
		return directory.Account{}, ErrInvalidEmail
	}

	hash, err := HashPassword(reg.Password)
	if err != nil {
		return directory.Account{}, err
	}

	acc := directory.Account{
		Email:        email,
		PasswordHash: hash,
		Code:         reg.Code,
		FirstName:    strings.TrimSpace(reg.FirstName),
		LastName:     strings.TrimSpace(reg.LastName),
		Role:         reg.Role,
		Active:       true,
		DepartmentID: reg.DepartmentID,
		CareerID:     reg.CareerID,
		Phone:        reg.Phone,
	}
	if acc.Code == "" {
		acc.Code = directory.CodeFromEmail(email)
	}
	if acc.Role == "" {
		acc.Role = directory.RoleStudent
	}
	if acc.DepartmentID == 0 {
		acc.DepartmentID = directory.DefaultDepartmentID
	}

	created, err := s.dir.Create(ctx, acc)
	if errors.Is(err, directory.ErrAlreadyExists) {
		return directory.Account{}, ErrAlreadyRegistered
	}
	if err != nil {
		return directory.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

// Authenticate checks email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller. Inactive accounts with a
// correct password yield directory.ErrInactive.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (directory.Account, error) {

	acc, err := directory.Authoritative(s.dir).LoadByEmail(ctx, email)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		return directory.Account{}, fmt.Errorf("load account: %w", err)
	}

	// Unknown emails and accounts without a hash still pay for a bcrypt
	// comparison so response time does not reveal which emails exist.
	hash := acc.PasswordHash
	if err != nil || hash == "" {
		_ = s.verify(dummyHash(), password)
		return directory.Account{}, ErrInvalidCredentials
	}
	if err := s.verify(hash, password); err != nil {
		return directory.Account{}, ErrInvalidCredentials
	}

	if !acc.Active {
		return directory.Account{}, directory.ErrInactive
	}
	return acc, nil
}
