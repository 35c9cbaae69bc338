package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	stdtime "time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/kuitang/authflow-e2e/internal/db"
	"github.com/kuitang/authflow-e2e/internal/email"
	"github.com/kuitang/authflow-e2e/internal/obs"
)

// Errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Argon2id parameters (OWASP second recommendation: m=19456, t=2, p=1)
// Parameters are embedded in each hash string, so older hashes keep verifying.
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024 // ~19 MiB
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// Clock abstracts time for testability.
type Clock interface {
	Now() stdtime.Time
}

// realClock implements Clock using the real system stdtime.
type realClock struct{}

func (realClock) Now() stdtime.Time { return stdtime.Now() }

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, encodedHash string) bool
}

// Argon2Hasher is the production PasswordHasher.
type Argon2Hasher struct{}

func (Argon2Hasher) HashPassword(password string) (string, error) { return HashPassword(password) }

func (Argon2Hasher) VerifyPassword(password, encodedHash string) bool {
	return VerifyPassword(password, encodedHash)
}

// User represents a user account.
type User struct {
	ID        string
	Username  string
	Email     string
	CreatedAt stdtime.Time
}

func userFromRow(row *db.User) *User {
	return &User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		CreatedAt: stdtime.Unix(row.CreatedAt, 0),
	}
}

// UserService handles user management operations.
type UserService struct {
	users        *db.UsersDB
	emailService email.EmailService
	baseURL      string // used in the welcome email
	hasher       PasswordHasher
	clock        Clock // defaults to real time
}

// NewUserService creates a new user service. A nil hasher means Argon2id.
func NewUserService(users *db.UsersDB, emailSvc email.EmailService, baseURL string, hasher PasswordHasher) *UserService {
	if hasher == nil {
		hasher = Argon2Hasher{}
	}
	return &UserService{
		users:        users,
		emailService: emailSvc,
		baseURL:      baseURL,
		hasher:       hasher,
		clock:        realClock{},
	}
}

// SetClock replaces the clock used by the service. Intended for testing.
func (s *UserService) SetClock(c Clock) {
	s.clock = c
}

// Register creates a new account. Form problems, including a taken username
// or email, come back as ValidationErrors.
func (s *UserService) Register(ctx context.Context, form Registration) (*User, error) {
	return s.register(ctx, form, true)
}

func (s *UserService) register(ctx context.Context, form Registration, welcome bool) (*User, error) {
	logger := obs.From(ctx).With("pkg", "auth")
	if errs := form.Validate(); len(errs) > 0 {
		return nil, errs
	}

	var taken ValidationErrors
	exists, err := s.users.UsernameExists(ctx, form.Username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if exists {
		taken = append(taken, FieldError{FieldUsername, MsgUsernameTaken})
	}
	exists, err = s.users.EmailExists(ctx, form.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		taken = append(taken, FieldError{FieldEmail, MsgEmailTaken})
	}
	if len(taken) > 0 {
		return nil, taken
	}

	passwordHash, err := s.hasher.HashPassword(form.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	row := db.User{
		ID:           generateUserID(),
		Username:     strings.TrimSpace(form.Username),
		Email:        strings.TrimSpace(form.Email),
		PasswordHash: passwordHash,
		CreatedAt:    now.Unix(),
	}
	// The existence checks above can race with a concurrent registration.
	switch err := s.users.CreateUser(ctx, row); {
	case errors.Is(err, db.ErrUsernameTaken):
		return nil, ValidationErrors{{FieldUsername, MsgUsernameTaken}}
	case errors.Is(err, db.ErrEmailTaken):
		return nil, ValidationErrors{{FieldEmail, MsgEmailTaken}}
	case err != nil:
		return nil, fmt.Errorf("create account: %w", err)
	}

	logger.Info("user_registered", "user_id", row.ID, "username", row.Username)

	if welcome && s.emailService != nil {
		err := s.emailService.Send(row.Email, email.TemplateWelcome, email.WelcomeData{
			Name:     row.Username,
			LoginURL: strings.TrimRight(s.baseURL, "/") + "/login",
		})
		if err != nil {
			// Registration stands without the welcome email.
			logger.Warn("welcome_email_failed", "user_id", row.ID, "error", err)
		}
	}

	return &User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		CreatedAt: now,
	}, nil
}

// VerifyLogin verifies username/password credentials. Empty fields come back
// as ValidationErrors; an unknown user or a wrong password as
// ErrInvalidCredentials.
func (s *UserService) VerifyLogin(ctx context.Context, username, password string) (*User, error) {
	if errs := ValidateLogin(username, password); len(errs) > 0 {
		return nil, errs
	}

	row, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if !s.hasher.VerifyPassword(password, row.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLogin(ctx, row.ID, s.clock.Now().Unix()); err != nil {
		obs.From(ctx).With("pkg", "auth").Warn("touch_login_failed", "user_id", row.ID, "error", err)
	}
	return userFromRow(row), nil
}

// Get returns the account with the given ID.
func (s *UserService) Get(ctx context.Context, userID string) (*User, error) {
	row, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return userFromRow(row), nil
}

// EnsureAccount creates the account unless the username already exists. It
// seeds the demo account the suite logs in with, so no welcome email is sent.
func (s *UserService) EnsureAccount(ctx context.Context, form Registration) error {
	_, err := s.register(ctx, form, false)
	var verrs ValidationErrors
	if errors.As(err, &verrs) && verrs.For(FieldUsername) == MsgUsernameTaken {
		return nil
	}
	return err
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	start := stdtime.Now()
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	obs.Pkg("auth").Debug("argon2_hash", "m_kib", argon2Memory, "t", argon2Time, "p", argon2Threads, "dur", stdtime.Since(start))

	// Encode as: $argon2id$v=19$m=19456,t=2,p=1$<salt>$<hash>
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Memory, argon2Time, argon2Threads, encodedSalt, encodedHash), nil
}

// VerifyPassword checks if a password matches a hash.
func VerifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	saltBytes, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	hashBytes, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	hashLen := len(hashBytes)
	if hashLen <= 0 || hashLen > argon2KeyLen*2 {
		return false
	}

	computedHash := argon2.IDKey([]byte(password), saltBytes, time, memory, threads, uint32(hashLen))

	// Constant-time comparison
	return subtle.ConstantTimeCompare(hashBytes, computedHash) == 1
}

func generateUserID() string {
	return "user-" + uuid.NewString()
}
