package model

import "errors"

// User-facing validation messages.
const (
	MsgTitleRequired    = "Judul task wajib diisi"
	MsgTitleEmpty       = "Judul task tidak boleh kosong"
	MsgOwnerRequired    = "Owner ID wajib diisi"
	MsgTaskIDRequired   = "ID task wajib diisi"
	MsgUsernameRequired = "Username wajib diisi"
	MsgUsernameTooShort = "Username minimal 3 karakter"
	MsgEmailInvalid     = "Format email tidak valid"
	MsgUserIDRequired   = "ID user wajib diisi"
)

// ValidationError reports structurally invalid input. Message is safe to show to
// the end user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err (or anything it wraps) is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
