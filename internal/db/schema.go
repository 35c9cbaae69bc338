package db

// UsersDBSchema creates the accounts table of the reference app. The *_key
// columns hold fold() of the display values so uniqueness and lookups ignore
// case.
const UsersDBSchema = `
CREATE TABLE IF NOT EXISTS users (
    user_id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    username_key TEXT NOT NULL,
    email TEXT NOT NULL,
    email_key TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    last_login_at INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_key ON users(username_key);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_key ON users(email_key);
`
