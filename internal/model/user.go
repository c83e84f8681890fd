package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// User is a registered account. Login is a plain username lookup.
type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// NewUser validates the profile fields and assigns a fresh id.
func NewUser(username, email, fullName string) (*User, error) {
	u := &User{
		ID:        uuid.NewString(),
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FullName:  strings.TrimSpace(fullName),
		CreatedAt: nowFunc(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the stored profile.
func (u *User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return newValidationError("id", MsgUserIDRequired)
	}
	if u.Username == "" {
		return newValidationError("username", MsgUsernameRequired)
	}
	if utf8.RuneCountInString(u.Username) < 3 {
		return newValidationError("username", MsgUsernameTooShort)
	}
	if u.Email != "" && !looksLikeEmail(u.Email) {
		return newValidationError("email", MsgEmailInvalid)
	}
	return nil
}

// DisplayName prefers the full name.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) MarkLogin() {
	now := nowFunc()
	u.LastLoginAt = &now
}

func looksLikeEmail(s string) bool {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.Contains(domain, "@")
}
