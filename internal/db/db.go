// Package db stores the reference app's accounts in a SQLCipher database.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// MaxOpenConns is the maximum number of open connections for a file database.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections for a file database.
	MaxIdleConns = 2

	// KeyLength is the SQLCipher key size in bytes.
	KeyLength = 32
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// User is one row of the users table.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    int64
	LastLoginAt  sql.NullInt64
}

// UsersDB wraps the sql.DB connection holding the users table.
type UsersDB struct {
	db *sql.DB
}

// NewUsersDBFromSQL wraps an existing sql.DB whose schema is already applied.
func NewUsersDBFromSQL(sqlDB *sql.DB) *UsersDB {
	return &UsersDB{db: sqlDB}
}

// DB returns the underlying sql.DB for direct access when needed
func (u *UsersDB) DB() *sql.DB {
	return u.db
}

// Open opens (creating if needed) the users database at path. A non-empty
// key encrypts the file with SQLCipher; it must be 64 hex characters.
func Open(path, keyHex string) (*UsersDB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	dsn := path
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != KeyLength {
			return nil, fmt.Errorf("database key must be %d hex-encoded bytes", KeyLength)
		}
		// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
		dsn = fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hex.EncodeToString(key))
	}
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open users database: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	// A wrong key only shows up on the first real query.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify users database connection: %w", err)
	}

	if _, err := sqlDB.Exec(UsersDBSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize users schema: %w", err)
	}

	return NewUsersDBFromSQL(sqlDB), nil
}

// OpenInMemory opens a private in-memory users database. Each call gets its
// own database.
func OpenInMemory() (*UsersDB, error) {
	dsn := fmt.Sprintf("file:users-%s?mode=memory&cache=shared", uuid.NewString())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory users database: %w", err)
	}

	// The database lives only as long as a connection does.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(UsersDBSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize in-memory users schema: %w", err)
	}

	return NewUsersDBFromSQL(sqlDB), nil
}

// CreateUser inserts a new account. Returns ErrUsernameTaken or ErrEmailTaken
// when the folded username or email collides with an existing row.
func (u *UsersDB) CreateUser(ctx context.Context, user User) error {
	_, err := u.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, username_key, email, email_key, password_hash, created_at)
		 VALUES (?, ?, fold(?), ?, fold(?), ?, ?)`,
		user.ID, strings.TrimSpace(user.Username), user.Username,
		strings.TrimSpace(user.Email), user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if taken := uniqueViolation(err); taken != nil {
			return taken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByUsername looks up an account by username, ignoring case.
func (u *UsersDB) GetByUsername(ctx context.Context, username string) (*User, error) {
	return u.getOne(ctx, `WHERE username_key = fold(?)`, username)
}

// GetByEmail looks up an account by email address, ignoring case.
func (u *UsersDB) GetByEmail(ctx context.Context, email string) (*User, error) {
	return u.getOne(ctx, `WHERE email_key = fold(?)`, email)
}

// GetByID looks up an account by its user ID.
func (u *UsersDB) GetByID(ctx context.Context, userID string) (*User, error) {
	return u.getOne(ctx, `WHERE user_id = ?`, userID)
}

// UsernameExists reports whether the folded username is taken.
func (u *UsersDB) UsernameExists(ctx context.Context, username string) (bool, error) {
	return u.exists(ctx, `SELECT 1 FROM users WHERE username_key = fold(?)`, username)
}

// EmailExists reports whether the folded email is taken.
func (u *UsersDB) EmailExists(ctx context.Context, email string) (bool, error) {
	return u.exists(ctx, `SELECT 1 FROM users WHERE email_key = fold(?)`, email)
}

// TouchLogin records a successful login time.
func (u *UsersDB) TouchLogin(ctx context.Context, userID string, at int64) error {
	res, err := u.db.ExecContext(ctx, `UPDATE users SET last_login_at = ? WHERE user_id = ?`, at, userID)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of accounts.
func (u *UsersDB) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := u.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// Close closes the database. An in-memory database is discarded.
func (u *UsersDB) Close() error {
	if u.db != nil {
		return u.db.Close()
	}
	return nil
}

func (u *UsersDB) getOne(ctx context.Context, where string, arg any) (*User, error) {
	var user User
	err := u.db.QueryRowContext(ctx,
		`SELECT user_id, username, email, password_hash, created_at, last_login_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.LastLoginAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

func (u *UsersDB) exists(ctx context.Context, query string, arg any) (bool, error) {
	var one int
	err := u.db.QueryRowContext(ctx, query, arg).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user existence: %w", err)
	}
	return true, nil
}

// uniqueViolation maps a UNIQUE constraint failure on users to the matching
// sentinel. Other errors return nil.
func uniqueViolation(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.Code != sqlite3.ErrConstraint {
		return nil
	}
	msg := sqliteErr.Error()
	switch {
	case strings.Contains(msg, "username_key"):
		return ErrUsernameTaken
	case strings.Contains(msg, "email_key"):
		return ErrEmailTaken
	}
	return nil
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
