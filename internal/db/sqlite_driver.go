package db

import (
	"database/sql"
	"fmt"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver with custom SQL functions.
	SQLiteDriverName = "sqlite3_authflow"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("fold", sqliteFold, true); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "already exists") {
					return nil
				}
				return fmt.Errorf("register fold SQL function: %w", err)
			}
			return nil
		},
	})
}

// Fold is the lookup key for usernames and email addresses: trimmed and
// lower-cased with Unicode rules, which SQLite's lower() does not apply.
func Fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func sqliteFold(input any) (string, error) {
	switch x := input.(type) {
	case nil:
		return "", nil
	case string:
		return Fold(x), nil
	case []byte:
		return Fold(string(x)), nil
	default:
		return "", fmt.Errorf("unsupported fold input type: %T", input)
	}
}
