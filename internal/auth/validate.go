package auth

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Form messages. The browser suite asserts on these strings.
const (
	MsgUsernameRequired   = "Username is required"
	MsgEmailRequired      = "Email is required"
	MsgEmailInvalid       = "Email is invalid"
	MsgPasswordRequired   = "Password is required"
	MsgPasswordTooShort   = "Password must be at least 6 characters"
	MsgUsernameTaken      = "Username already exists"
	MsgEmailTaken         = "Email already exists"
	MsgInvalidCredentials = "Invalid username or password"
	MsgTooManyAttempts    = "Too many attempts"
)

// MinPasswordLength is the shortest password registration accepts.
const MinPasswordLength = 6

// Form field names.
const (
	FieldUsername = "username"
	FieldEmail    = "email"
	FieldPassword = "password"
)

// FieldError is one problem with one form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors lists form problems in field order.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	return strings.Join(v.Messages(), ", ")
}

// Messages returns the messages in order.
func (v ValidationErrors) Messages() []string {
	out := make([]string, 0, len(v))
	for _, fe := range v {
		out = append(out, fe.Message)
	}
	return out
}

// For returns the first message for field, or "".
func (v ValidationErrors) For(field string) string {
	for _, fe := range v {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Registration is a submitted registration form.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Validate checks required fields, the email format and password length.
func (r Registration) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, FieldError{FieldUsername, MsgUsernameRequired})
	}
	switch email := strings.TrimSpace(r.Email); {
	case email == "":
		errs = append(errs, FieldError{FieldEmail, MsgEmailRequired})
	case !ValidEmail(email):
		errs = append(errs, FieldError{FieldEmail, MsgEmailInvalid})
	}
	switch {
	case r.Password == "":
		errs = append(errs, FieldError{FieldPassword, MsgPasswordRequired})
	case utf8.RuneCountInString(r.Password) < MinPasswordLength:
		errs = append(errs, FieldError{FieldPassword, MsgPasswordTooShort})
	}
	return errs
}

// ValidateLogin checks that both login fields are filled.
func ValidateLogin(username, password string) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(username) == "" {
		errs = append(errs, FieldError{FieldUsername, MsgUsernameRequired})
	}
	if password == "" {
		errs = append(errs, FieldError{FieldPassword, MsgPasswordRequired})
	}
	return errs
}

var validate = validator.New()

// ValidEmail accepts a bare address with a dotted domain ("a@b.co"), not a
// display-name form.
func ValidEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
