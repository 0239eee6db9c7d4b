package auth

import (
	"net/mail"
	"strings"

	apperrors "github.com/target/municipal-portal/internal/errors"
)

// UserInput carries the admin form fields for creating or updating a user.
// Password is optional on update; an empty value leaves it unchanged.
type UserInput struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Active   *bool  `json:"is_active,omitempty"`
}

// Normalize trims text fields and lowercases the role in place.
func (u *UserInput) Normalize() {
	u.Email = strings.TrimSpace(u.Email)
	u.Username = strings.TrimSpace(u.Username)
	u.Role = Role(strings.ToLower(strings.TrimSpace(string(u.Role))))
}

// ValidateCreate checks the fields required to create a user.
func (u UserInput) ValidateCreate() error {
	if u.Password == "" {
		return apperrors.ValidationField("password", "Senha é obrigatória")
	}
	return u.validateCommon()
}

// ValidateUpdate checks the fields of an update.
func (u UserInput) ValidateUpdate() error {
	return u.validateCommon()
}

func (u UserInput) validateCommon() error {
	if u.Email == "" {
		return apperrors.ValidationField("email", "Email é obrigatório")
	}
	if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
		return apperrors.ValidationField("email", "Email inválido")
	}
	if u.Role == "" {
		return apperrors.ValidationField("role", "Função é obrigatória")
	}
	if !u.Role.Valid() {
		return apperrors.ValidationField("role", "Função deve ser admin ou user")
	}
	return nil
}
