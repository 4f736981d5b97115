// Package database, SQLite bağlantısını ve migration sistemini yönetir.
//
// Tablolar: meetings, voiceprints (şifreli), rate_limit_entries.
// SQLite driver (modernc.org/sqlite) blank import ile "sqlite" adıyla kayıt olur.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver, CGO gerekmez
)

// MemoryPath, testlerde kullanılan in-memory veritabanı yolu.
const MemoryPath = ":memory:"

// pragmas, her bağlantıya uygulanan DSN parametreleri.
//
//   - foreign_keys(1): FK constraint'leri aktif (SQLite'ta varsayılan kapalı)
//   - journal_mode(WAL): okuyucular yazarı beklemez
//   - busy_timeout(5000): kilitli DB'de hemen hata yerine 5sn bekle
//   - _txlock=immediate: BEGIN IMMEDIATE, write lock transaction başında alınır
const pragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate"

// DB, veritabanı bağlantısını saran struct. Conn thread-safe bir
// connection pool'dur; repository'ler paylaşır.
type DB struct {
	Conn *sql.DB
	log  zerolog.Logger
}

// New, SQLite bağlantısını açar ve bekleyen migration'ları uygular.
//
// dbPath: dosya yolu (ör: "./data/voxgate.db") veya MemoryPath.
// migrationsFS: kök dizininde NNN_name.sql dosyaları olan fs.FS.
func New(dbPath string, migrationsFS fs.FS, log zerolog.Logger) (*DB, error) {
	memory := dbPath == MemoryPath

	if !memory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath+"?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Her in-memory bağlantı ayrı bir veritabanıdır; tek bağlantıya sabitle
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn, log: log}
	if err := db.migrate(context.Background(), migrationsFS); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("database connected and migrations applied")
	return db, nil
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// migrate, schema_migrations'ta kaydı olmayan .sql dosyalarını isim
// sırasıyla uygular. Her dosya kendi transaction'ında çalışır: yarıda
// kalan bir dosya ne şemayı değiştirir ne de uygulanmış sayılır.
func (db *DB) migrate(ctx context.Context, migrationsFS fs.FS) error {
	if _, err := db.Conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return err
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		err = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			for i, stmt := range splitStatements(string(content)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("migration %s (statement %d): %w", file, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", file)
			return err
		})
		if err != nil {
			return err
		}

		db.log.Info().Str("file", file).Msg("migration applied")
	}
	return nil
}

func migrationFiles(migrationsFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}

func (db *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := db.Conn.QueryContext(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// splitStatements, SQL metnini ';' ile böler. Tek tırnaklı literal
// içindeki ';' ve ” kaçışı statement sınırı sayılmaz; "--" ile başlayan
// satır yorumları atılır.
func splitStatements(src string) []string {
	var (
		statements []string
		current    strings.Builder
		inString   bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(src); i++ {
		ch := src[i]

		switch {
		case !inString && ch == '-' && i+1 < len(src) && src[i+1] == '-':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		case ch == '\'':
			inString = !inString
		case ch == ';' && !inString:
			flush()
			continue
		}
		current.WriteByte(ch)
	}
	flush()

	return statements
}
