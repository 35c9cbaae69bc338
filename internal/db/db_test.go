package db

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testKeyHex = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" // 64 hex chars = 32 bytes

func openMemory(t testing.TB) *UsersDB {
	t.Helper()
	users, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { users.Close() })
	return users
}

func newUser(username, email string) User {
	return User{
		ID:           "user-" + uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: "$fake$secret",
		CreatedAt:    1700000000,
	}
}

func TestCreateAndLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := openMemory(t)

	u := newUser("Alice", "Alice@Example.com")
	require.NoError(t, users.CreateUser(ctx, u))

	byName, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, "Alice", byName.Username, "display value keeps its case")

	byEmail, err := users.GetByEmail(ctx, " alice@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$fake$secret", byID.PasswordHash)
	assert.False(t, byID.LastLoginAt.Valid)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateUser_DuplicateUsernameAndEmail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := openMemory(t)
	require.NoError(t, users.CreateUser(ctx, newUser("bob", "bob@example.com")))

	err := users.CreateUser(ctx, newUser("BOB", "other@example.com"))
	assert.ErrorIs(t, err, ErrUsernameTaken)

	err = users.CreateUser(ctx, newUser("robert", "Bob@Example.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)

	taken, err := users.UsernameExists(ctx, "Bob")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = users.EmailExists(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := openMemory(t)

	_, err := users.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.GetByID(ctx, "user-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.TouchLogin(ctx, "user-missing", 1), ErrNotFound)
}

func TestTouchLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	users := openMemory(t)
	u := newUser("carol", "carol@example.com")
	require.NoError(t, users.CreateUser(ctx, u))

	require.NoError(t, users.TouchLogin(ctx, u.ID, 1700000100))
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000100), got.LastLoginAt.Int64)
}

func TestOpenInMemory_Isolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	a := openMemory(t)
	b := openMemory(t)
	require.NoError(t, a.CreateUser(ctx, newUser("dave", "dave@example.com")))

	n, err := b.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_EncryptedFileNeedsKey(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "users.db")

	users, err := Open(path, testKeyHex)
	require.NoError(t, err)
	require.NoError(t, users.CreateUser(ctx, newUser("erin", "erin@example.com")))
	require.NoError(t, users.Close())

	reopened, err := Open(path, testKeyHex)
	require.NoError(t, err)
	got, err := reopened.GetByUsername(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, "erin@example.com", got.Email)
	require.NoError(t, reopened.Close())

	wrongKey := strings.Repeat("b", 64)
	_, err = Open(path, wrongKey)
	require.Error(t, err, "wrong SQLCipher key must fail verification")
}

func TestOpen_RejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := Open("", "")
	require.Error(t, err)
	_, err = Open(filepath.Join(t.TempDir(), "users.db"), "not-hex")
	require.Error(t, err)
}

func testFold_Idempotent(t *rapid.T) {
	s := rapid.String().Draw(t, "s")
	once := Fold(s)
	if Fold(once) != once {
		t.Fatalf("Fold not idempotent: %q -> %q -> %q", s, once, Fold(once))
	}
	if strings.TrimSpace(once) != once {
		t.Fatalf("Fold(%q) = %q keeps surrounding space", s, once)
	}
}

func TestFold_Idempotent(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testFold_Idempotent)
}

func testLookup_CaseInsensitive(t *rapid.T) {
	ctx := context.Background()
	users, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	defer users.Close()

	name := rapid.StringMatching(`[a-z][a-z0-9_]{2,15}`).Draw(t, "name")
	if err := users.CreateUser(ctx, newUser(name, name+"@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	variant := []rune(name)
	for i := range variant {
		if rapid.Bool().Draw(t, "upper") {
			variant[i] = []rune(strings.ToUpper(string(variant[i])))[0]
		}
	}
	got, err := users.GetByUsername(ctx, string(variant))
	if err != nil {
		t.Fatalf("GetByUsername(%q): %v", string(variant), err)
	}
	if got.Username != name {
		t.Fatalf("GetByUsername(%q) = %q", string(variant), got.Username)
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testLookup_CaseInsensitive)
}
