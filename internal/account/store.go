// Package account implements the authentication backend: a SQLite-backed
// account store and the HTTP service the table server and clients talk to.
package account

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"

	"github.com/lox/twentyone/internal/game"
)

var (
	// ErrNotFound indicates no account matches the lookup.
	ErrNotFound = errors.New("account: not found")

	// ErrNameTaken indicates the name is already registered.
	ErrNameTaken = errors.New("account: name taken")

	// ErrBadCredentials indicates the name/password pair does not match.
	ErrBadCredentials = errors.New("account: bad credentials")
)

// Account is one registered player with a persisted chip balance.
type Account struct {
	ID    string
	Name  string
	Chips int
}

// Store is the SQLite-backed account repository.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the account database at path and applies the
// schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		password_hash BLOB NOT NULL,
		token TEXT,
		chips INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_token ON accounts(token);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Register creates an account with the standard starting balance and issues
// a session token.
func (s *Store) Register(name, password string) (*Account, string, error) {
	if name == "" || password == "" {
		return nil, "", ErrBadCredentials
	}

	var exists int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM accounts WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, "", fmt.Errorf("check name: %w", err)
	}
	if exists > 0 {
		return nil, "", ErrNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	acct := &Account{
		ID:    "acct_" + randomHex(10),
		Name:  name,
		Chips: game.StartingChips,
	}
	token := randomHex(20)

	_, err = s.db.Exec(`
		INSERT INTO accounts (id, name, password_hash, token, chips)
		VALUES (?, ?, ?, ?, ?)
	`, acct.ID, acct.Name, hash, token, acct.Chips)
	if err != nil {
		return nil, "", fmt.Errorf("create account: %w", err)
	}

	return acct, token, nil
}

// Authenticate verifies the name/password pair and rotates the session
// token on success.
func (s *Store) Authenticate(name, password string) (*Account, string, error) {
	acct := &Account{Name: name}
	var hash []byte

	err := s.db.QueryRow(`
		SELECT id, password_hash, chips FROM accounts WHERE name = ?
	`, name).Scan(&acct.ID, &hash, &acct.Chips)
	if err == sql.ErrNoRows {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, "", ErrBadCredentials
	}

	token := randomHex(20)
	_, err = s.db.Exec(`
		UPDATE accounts SET token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, token, acct.ID)
	if err != nil {
		return nil, "", fmt.Errorf("rotate token: %w", err)
	}

	return acct, token, nil
}

// ByToken resolves a session token to its account.
func (s *Store) ByToken(token string) (*Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	acct := &Account{}
	err := s.db.QueryRow(`
		SELECT id, name, chips FROM accounts WHERE token = ?
	`, token).Scan(&acct.ID, &acct.Name, &acct.Chips)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	return acct, nil
}

// SaveChips persists a settled chip balance.
func (s *Store) SaveChips(id string, chips int) error {
	res, err := s.db.Exec(`
		UPDATE accounts SET chips = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, chips, id)
	if err != nil {
		return fmt.Errorf("save chips: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
