package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRegistrationValidate_Messages(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		form Registration
		want []string
	}{
		{"all empty", Registration{}, []string{MsgUsernameRequired, MsgEmailRequired, MsgPasswordRequired}},
		{"bad email", Registration{"u", "not-an-email", "secret1"}, []string{MsgEmailInvalid}},
		{"display name email", Registration{"u", "U <u@example.com>", "secret1"}, []string{MsgEmailInvalid}},
		{"dotless domain", Registration{"u", "u@localhost", "secret1"}, []string{MsgEmailInvalid}},
		{"two at signs", Registration{"u", "u@x@example.com", "secret1"}, []string{MsgEmailInvalid}},
		{"space in local part", Registration{"u", "a b@example.com", "secret1"}, []string{MsgEmailInvalid}},
		{"short password", Registration{"u", "u@example.com", "12345"}, []string{MsgPasswordTooShort}},
		{"blank username", Registration{"   ", "u@example.com", "123456"}, []string{MsgUsernameRequired}},
		{"valid", Registration{"u", "u@example.com", "123456"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.form.Validate()
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got.Messages())
			assert.Equal(t, strings.Join(tc.want, ", "), got.Error())
		})
	}
}

func testValidate_PasswordLengthBoundary(t *rapid.T) {
	n := rapid.IntRange(1, 20).Draw(t, "n")
	password := strings.Repeat("é", n)
	errs := Registration{Username: "u", Email: "u@example.com", Password: password}.Validate()
	tooShort := errs.For(FieldPassword) == MsgPasswordTooShort
	if tooShort != (n < MinPasswordLength) {
		t.Fatalf("password of %d runes: tooShort=%v", n, tooShort)
	}
}

func TestValidate_PasswordLengthBoundary(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidate_PasswordLengthBoundary)
}

func testValidEmail_AcceptsSimpleAddresses(t *rapid.T) {
	local := rapid.StringMatching(`[a-z0-9][a-z0-9._]{0,15}[a-z0-9]`).Filter(func(s string) bool {
		return !strings.Contains(s, "..")
	}).Draw(t, "local")
	domain := rapid.StringMatching(`[a-z][a-z0-9]{0,10}\.[a-z]{2,6}`).Draw(t, "domain")
	if !ValidEmail(local + "@" + domain) {
		t.Fatalf("ValidEmail(%q) = false", local+"@"+domain)
	}
}

func TestValidEmail_AcceptsSimpleAddresses(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testValidEmail_AcceptsSimpleAddresses)
}

func TestValidateLogin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{MsgPasswordRequired}, ValidateLogin("user", "").Messages())
	assert.Equal(t, []string{MsgUsernameRequired}, ValidateLogin(" ", "x").Messages())
	assert.Empty(t, ValidateLogin("user", "x"))
}
