package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mwalcott/reqtrack/internal/domain/model"
	"github.com/mwalcott/reqtrack/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// TokenRepo is the SQLite implementation of the TokenStore port interface.
// Refresh tokens are encrypted with AES-256-GCM before write and decrypted
// after read; account metadata is stored in the clear.
type TokenRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is disabled.
}

// NewTokenRepo creates a new TokenRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable refresh-token persistence (token operations will return
// driven.ErrEncryptionKeyNotSet; account operations still work).
func NewTokenRepo(db *DB, key []byte) *TokenRepo {
	return &TokenRepo{db: db, key: key}
}

// SaveAccount stores or replaces the cached account, preserving any stored
// refresh token for the same account id.
func (r *TokenRepo) SaveAccount(ctx context.Context, account model.Account) error {
	const query = `
		INSERT INTO accounts (id, name, email, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, updated_at = CURRENT_TIMESTAMP`
	_, err := r.db.Writer.ExecContext(ctx, query, account.ID, account.Name, account.Email)
	if err != nil {
		return fmt.Errorf("save account %q: %w", account.ID, err)
	}
	return nil
}

// Accounts returns all cached accounts, most recently updated first.
func (r *TokenRepo) Accounts(ctx context.Context) ([]model.Account, error) {
	const query = `SELECT id, name, email, updated_at FROM accounts ORDER BY updated_at DESC`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		var acc model.Account
		var updatedAt string
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Email, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.UpdatedAt, err = parseTime(updatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse updated_at for account %q: %w", acc.ID, err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// SaveRefreshToken stores or replaces the encrypted refresh credential for the
// given account. The account row must already exist.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, accountID, plaintext string) error {
	encrypted, err := r.encrypt(plaintext)
	if err != nil {
		return err
	}

	const query = `UPDATE accounts SET refresh_token = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, encrypted, accountID)
	if err != nil {
		return fmt.Errorf("save refresh token for %q: %w", accountID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("save refresh token: account %q not cached", accountID)
	}
	return nil
}

// RefreshToken retrieves the plaintext refresh credential for the given account.
// Returns ("", nil) if the account is unknown or has no stored credential.
func (r *TokenRepo) RefreshToken(ctx context.Context, accountID string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	const query = `SELECT refresh_token FROM accounts WHERE id = ?`
	var encrypted sql.NullString
	err := r.db.Reader.QueryRowContext(ctx, query, accountID).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get refresh token for %q: %w", accountID, err)
	}
	if !encrypted.Valid || encrypted.String == "" {
		return "", nil
	}

	plaintext, err := r.decrypt(encrypted.String)
	if err != nil {
		return "", fmt.Errorf("decrypt refresh token for %q: %w", accountID, err)
	}
	return plaintext, nil
}

// Clear removes all cached accounts and credentials.
func (r *TokenRepo) Clear(ctx context.Context) error {
	_, err := r.db.Writer.ExecContext(ctx, `DELETE FROM accounts`)
	if err != nil {
		return fmt.Errorf("clear accounts: %w", err)
	}
	return nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded
// string containing the nonce (12 bytes) prepended to the ciphertext.
func (r *TokenRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *TokenRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

// parseTime parses SQLite timestamp strings, which come back either in the
// CURRENT_TIMESTAMP format or as RFC 3339 when written by the driver.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
