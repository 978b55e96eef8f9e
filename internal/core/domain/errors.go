package domain

import (
	"errors"
	"strings"
)

// Error kinds. Callers classify with errors.Is against the kind; the more
// specific values below wrap exactly one of these.
var (
	ErrUnauthenticated  = errors.New("could not validate credentials")
	ErrForbidden        = errors.New("access forbidden")
	ErrConflict         = errors.New("identity already exists")
	ErrIdentityNotFound = errors.New("user not found")
)

var (
	// Login failures. Unknown identities and wrong passwords share one value
	// per lookup key.
	ErrInvalidCredentials      = &kindError{msg: "incorrect username or password", kind: ErrUnauthenticated}
	ErrInvalidEmailCredentials = &kindError{msg: "incorrect email or password", kind: ErrUnauthenticated}

	ErrInactiveIdentity = &kindError{msg: "inactive user", kind: ErrForbidden}
	ErrNotPrivileged    = &kindError{msg: "the user doesn't have enough privileges", kind: ErrForbidden}

	// ErrSelfPrivilegeChange rejects is_superuser on the self-service update,
	// whoever the caller is.
	ErrSelfPrivilegeChange = &kindError{msg: "privilege changes require the admin endpoint", kind: ErrForbidden}

	ErrUsernameTaken = &kindError{msg: "username already registered", kind: ErrConflict}
	ErrEmailTaken    = &kindError{msg: "email already registered", kind: ErrConflict}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}
