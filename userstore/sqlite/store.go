package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	goVerify "github.com/MrEthical07/goVerify"
	"github.com/MrEthical07/goVerify/codes"
	"github.com/MrEthical07/goVerify/userstore/sqlite/migrations"
	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const migrationTable = "schema_migrations"

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Store implements goVerify.UserProvider over SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens path (or ":memory:") and applies the bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB, now: time.Now}
	if err := store.applyMigrations(migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database is reachable. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

const selectUser = `SELECT id, COALESCE(mobile, ''), COALESCE(email, ''), password, nickname, avatar, motto, gender, created_at FROM users`

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (goVerify.Account, error) {
	column := identifierColumn(identifier)
	row := s.sqlDB.QueryRowContext(ctx, selectUser+" WHERE "+column+" = ?", identifier)

	var (
		acct      goVerify.Account
		createdAt int64
	)
	err := row.Scan(&acct.UserID, &acct.Mobile, &acct.Email, &acct.PasswordHash,
		&acct.Nickname, &acct.Avatar, &acct.Motto, &acct.Gender, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goVerify.Account{}, goVerify.ErrUserNotFound
		}
		return goVerify.Account{}, fmt.Errorf("%w: find user: %v", goVerify.ErrStoreUnavailable, err)
	}
	acct.Identifier = identifier
	acct.CreatedAt = fromMillis(createdAt)
	return acct, nil
}

func (s *Store) CreateUser(ctx context.Context, in goVerify.CreateUserInput) (goVerify.Account, error) {
	now := s.now().UTC()
	acct := goVerify.Account{
		UserID:       uuid.NewString(),
		Identifier:   in.Identifier,
		Mobile:       in.Mobile,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Nickname:     in.Nickname,
		CreatedAt:    fromMillis(toMillis(now)),
	}

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, mobile, email, password, nickname, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acct.UserID, nullable(in.Mobile), nullable(in.Email), in.PasswordHash, in.Nickname, toMillis(now), toMillis(now),
	)
	if err != nil {
		if isConstraintError(err) {
			return goVerify.Account{}, goVerify.ErrProviderDuplicateIdentifier
		}
		return goVerify.Account{}, fmt.Errorf("%w: create user: %v", goVerify.ErrStoreUnavailable, err)
	}
	return acct, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		hash, toMillis(s.now()), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: update password: %v", goVerify.ErrStoreUnavailable, err)
	}
	return expectOneRow(res)
}

// UpdateIdentifier sets the mobile column for PurposeChangeMobile and the
// email column for PurposeChangeEmail.
func (s *Store) UpdateIdentifier(ctx context.Context, userID string, purpose goVerify.Purpose, identifier string) error {
	var column string
	switch purpose {
	case codes.PurposeChangeMobile:
		column = "mobile"
	case codes.PurposeChangeEmail:
		column = "email"
	default:
		return goVerify.ErrInvalidRequest
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		identifier, toMillis(s.now()), userID,
	)
	if err != nil {
		if isConstraintError(err) {
			return goVerify.ErrProviderDuplicateIdentifier
		}
		return fmt.Errorf("%w: update identifier: %v", goVerify.ErrStoreUnavailable, err)
	}
	return expectOneRow(res)
}

// UpdateProfile changes the display fields of an account.
func (s *Store) UpdateProfile(ctx context.Context, userID string, p goVerify.Profile) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET nickname = ?, avatar = ?, motto = ?, gender = ?, updated_at = ? WHERE id = ?`,
		p.Nickname, p.Avatar, p.Motto, p.Gender, toMillis(s.now()), userID,
	)
	if err != nil {
		return fmt.Errorf("%w: update profile: %v", goVerify.ErrStoreUnavailable, err)
	}
	return expectOneRow(res)
}

func identifierColumn(identifier string) string {
	if codes.ChannelFor(identifier) == codes.ChannelEmail {
		return "email"
	}
	return "mobile"
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", goVerify.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return goVerify.ErrUserNotFound
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// applyMigrations runs each embedded .sql file at most once, in name order.
func (s *Store) applyMigrations(migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := s.sqlDB.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (name TEXT PRIMARY KEY, applied_at INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := s.sqlDB.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	body := content[start+len(up):]
	if end := strings.Index(body, down); end != -1 {
		body = body[:end]
	}
	return body
}
