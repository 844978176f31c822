package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mixchat/internal/domain"
)

// SQLite is the client's local database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating as needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// WAL keeps the drain path from blocking on history reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username   TEXT PRIMARY KEY,
		public_key TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS contacts (
		owner      TEXT NOT NULL,
		contact    TEXT NOT NULL,
		public_key TEXT NOT NULL,
		added_at   INTEGER NOT NULL,
		PRIMARY KEY (owner, contact)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		owner     TEXT NOT NULL,
		contact   TEXT NOT NULL,
		direction TEXT NOT NULL CHECK (direction IN ('to', 'from')),
		body      TEXT NOT NULL,
		ts        INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_owner_contact ON messages(owner, contact, ts);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// RegisterUser records (or replaces) a local user and their public key.
func (s *SQLite) RegisterUser(username, publicKeyPEM string) error {
	_, err := s.db.Exec(`
		INSERT INTO users (username, public_key, created_at) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET public_key = excluded.public_key`,
		username, publicKeyPEM, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: register user: %w", err)
	}
	return nil
}

// GetUser returns a locally known user.
func (s *SQLite) GetUser(username string) (domain.Contact, error) {
	var c domain.Contact
	err := s.db.QueryRow(
		`SELECT username, public_key FROM users WHERE username = ?`, username,
	).Scan(&c.Username, &c.PublicKey)
	if err == sql.ErrNoRows {
		return domain.Contact{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Contact{}, fmt.Errorf("store: get user: %w", err)
	}
	return c, nil
}

// AddContact adds or refreshes a contact for owner.
func (s *SQLite) AddContact(owner string, c domain.Contact) error {
	_, err := s.db.Exec(`
		INSERT INTO contacts (owner, contact, public_key, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner, contact) DO UPDATE SET public_key = excluded.public_key`,
		owner, c.Username, c.PublicKey, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("store: add contact: %w", err)
	}
	return nil
}

// GetContact returns one of owner's contacts.
func (s *SQLite) GetContact(owner, contact string) (domain.Contact, error) {
	var c domain.Contact
	err := s.db.QueryRow(
		`SELECT contact, public_key FROM contacts WHERE owner = ? AND contact = ?`,
		owner, contact,
	).Scan(&c.Username, &c.PublicKey)
	if err == sql.ErrNoRows {
		return domain.Contact{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Contact{}, fmt.Errorf("store: get contact: %w", err)
	}
	return c, nil
}

// Contacts returns all of owner's contacts ordered by name.
func (s *SQLite) Contacts(owner string) ([]domain.Contact, error) {
	rows, err := s.db.Query(
		`SELECT contact, public_key FROM contacts WHERE owner = ? ORDER BY contact ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("store: list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.Username, &c.PublicKey); err != nil {
			return nil, fmt.Errorf("store: scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveMessage appends a message to owner's history.
func (s *SQLite) SaveMessage(owner string, m domain.Message) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO messages (owner, contact, direction, body, ts) VALUES (?, ?, ?, ?, ?)`,
		owner, m.Contact, string(m.Direction), m.Body, ts.Unix())
	if err != nil {
		return fmt.Errorf("store: save message: %w", err)
	}
	return nil
}

// Messages returns owner's history with contact in send/receive order.
func (s *SQLite) Messages(owner, contact string) ([]domain.Message, error) {
	rows, err := s.db.Query(`
		SELECT contact, direction, body, ts FROM messages
		WHERE owner = ? AND contact = ?
		ORDER BY ts ASC, id ASC`,
		owner, contact)
	if err != nil {
		return nil, fmt.Errorf("store: load messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var (
			m   domain.Message
			dir string
			ts  int64
		)
		if err := rows.Scan(&m.Contact, &dir, &m.Body, &ts); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		m.Direction = domain.Direction(dir)
		m.Timestamp = time.Unix(ts, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Compile-time assertion that SQLite implements domain.Store.
var _ domain.Store = (*SQLite)(nil)
