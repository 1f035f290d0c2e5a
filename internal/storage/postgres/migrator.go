package postgres

import (
	"cmp"
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/samber/lo"
)

//go:embed sql/migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "sql/migrations"
	// migrationLockKey: ключ pg_advisory_lock, сериализующий миграции между процессами.
	migrationLockKey = int64(0x636f6d70746f6972)

	schemaMigrationsDDL = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			checksum TEXT NOT NULL DEFAULT '',
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	appliedMigrationsSQL = `SELECT version, checksum FROM schema_migrations`
	recordMigrationSQL   = `INSERT INTO schema_migrations (version, name, checksum) VALUES ($1, $2, $3)`
	forgetMigrationSQL   = `DELETE FROM schema_migrations WHERE version = $1`
)

var migrationFileRe = regexp.MustCompile(`^(\d+)_(\w+)\.(up|down)\.sql$`)

// migration: пара up/down скриптов одной версии схемы.
type migration struct {
	Version int64
	Name    string
	Up      string
	Down    string
}

func (m migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// checksum фиксирует текст up-скрипта на момент применения.
func (m migration) checksum() string {
	sum := sha256.Sum256([]byte(m.Up))
	return hex.EncodeToString(sum[:])
}

// MigrationState: состояние схемы относительно встроенных миграций.
type MigrationState struct {
	Version int64
	Applied int
	Pending []string
	// Drifted: применённые миграции, текст которых с тех пор изменился.
	Drifted []string
}

// MigrateUp применяет steps ожидающих миграций; steps <= 0: все.
func (s *Store) MigrateUp(ctx context.Context, steps int) error {
	return s.withMigrationLock(ctx, func(conn *sql.Conn, all []migration, applied map[int64]string) error {
		for _, m := range planUp(all, applied, steps) {
			err := runInConnTx(ctx, conn, m.Up, recordMigrationSQL, m.Version, m.Name, m.checksum())
			if err != nil {
				return errors.Wrapf(err, "up %s", m)
			}
		}
		return nil
	})
}

// MigrateDown откатывает steps последних применённых миграций; steps <= 0: одну.
func (s *Store) MigrateDown(ctx context.Context, steps int) error {
	return s.withMigrationLock(ctx, func(conn *sql.Conn, all []migration, applied map[int64]string) error {
		plan, err := planDown(all, applied, steps)
		if err != nil {
			return err
		}
		for _, m := range plan {
			if err := runInConnTx(ctx, conn, m.Down, forgetMigrationSQL, m.Version); err != nil {
				return errors.Wrapf(err, "down %s", m)
			}
		}
		return nil
	})
}

func (s *Store) MigrationStatus(ctx context.Context) (MigrationState, error) {
	if s == nil || s.db == nil {
		return MigrationState{}, errStoreNotInitialized
	}
	all, err := parseMigrations(migrationsFS)
	if err != nil {
		return MigrationState{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return MigrationState{}, errors.Wrap(err, "acquire connection")
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return MigrationState{}, errors.Wrap(err, "ensure schema_migrations")
	}
	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return MigrationState{}, err
	}
	return describe(all, applied), nil
}

func (s *Store) withMigrationLock(ctx context.Context, fn func(*sql.Conn, []migration, map[int64]string) error) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	all, err := parseMigrations(migrationsFS)
	if err != nil {
		return err
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "acquire connection")
	}
	defer func() { _ = conn.Close() }()

	lockCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return errors.Wrap(err, "acquire migration lock")
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockKey)
	}()

	if _, err := conn.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return errors.Wrap(err, "ensure schema_migrations")
	}
	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}
	return fn(conn, all, applied)
}

// runInConnTx выполняет скрипт миграции и запись в schema_migrations атомарно.
func runInConnTx(ctx context.Context, conn *sql.Conn, script, bookkeeping string, args ...any) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		_ = tx.Rollback()
		return errors.Wrap(err, "schema_migrations")
	}
	return tx.Commit()
}

func appliedMigrations(ctx context.Context, conn *sql.Conn) (map[int64]string, error) {
	rows, err := conn.QueryContext(ctx, appliedMigrationsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query schema_migrations")
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[int64]string)
	for rows.Next() {
		var (
			version  int64
			checksum string
		)
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate schema_migrations")
	}
	return applied, nil
}

func planUp(all []migration, applied map[int64]string, steps int) []migration {
	pending := lo.Filter(all, func(m migration, _ int) bool {
		_, ok := applied[m.Version]
		return !ok
	})
	if steps > 0 && len(pending) > steps {
		pending = pending[:steps]
	}
	return pending
}

func planDown(all []migration, applied map[int64]string, steps int) ([]migration, error) {
	if steps <= 0 {
		steps = 1
	}
	byVersion := lo.KeyBy(all, func(m migration) int64 { return m.Version })

	versions := lo.Keys(applied)
	slices.Sort(versions)
	slices.Reverse(versions)
	if len(versions) > steps {
		versions = versions[:steps]
	}

	plan := make([]migration, 0, len(versions))
	for _, v := range versions {
		m, ok := byVersion[v]
		if !ok {
			return nil, errors.Errorf("applied version %d has no embedded migration", v)
		}
		plan = append(plan, m)
	}
	return plan, nil
}

func describe(all []migration, applied map[int64]string) MigrationState {
	state := MigrationState{Applied: len(applied)}
	for v := range applied {
		state.Version = max(state.Version, v)
	}
	for _, m := range all {
		checksum, ok := applied[m.Version]
		switch {
		case !ok:
			state.Pending = append(state.Pending, m.String())
		case checksum != "" && checksum != m.checksum():
			state.Drifted = append(state.Drifted, m.String())
		}
	}
	return state
}

// parseMigrations читает пары NNNN_name.{up,down}.sql и упорядочивает их по версии.
func parseMigrations(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	byVersion := make(map[int64]*migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parts := migrationFileRe.FindStringSubmatch(entry.Name())
		if parts == nil {
			return nil, errors.Errorf("unexpected file %s in migrations", entry.Name())
		}
		version, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "version of %s", entry.Name())
		}

		raw, err := fs.ReadFile(fsys, path.Join(migrationsDir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", entry.Name())
		}
		body := strings.TrimSpace(string(raw))
		if body == "" {
			return nil, errors.Errorf("%s is empty", entry.Name())
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{Version: version, Name: parts[2]}
			byVersion[version] = m
		}
		if m.Name != parts[2] {
			return nil, errors.Errorf("version %d is named both %s and %s", version, m.Name, parts[2])
		}

		target := &m.Up
		if parts[3] == "down" {
			target = &m.Down
		}
		if *target != "" {
			return nil, errors.Errorf("duplicate %s script for version %d", parts[3], version)
		}
		*target = body
	}
	if len(byVersion) == 0 {
		return nil, errors.New("no migrations embedded")
	}

	all := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, errors.Errorf("%s needs both up and down scripts", m)
		}
		all = append(all, *m)
	}
	slices.SortFunc(all, func(a, b migration) int { return cmp.Compare(a.Version, b.Version) })
	return all, nil
}
