package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/sqlinline"
)

// SessionStoreSQLite implements session.Store on a local SQLite file.
type SessionStoreSQLite struct {
	db     *sql.DB
	logger infra.Logger
}

// OpenSessionStoreSQLite opens (or creates) the database and runs migrations.
func OpenSessionStoreSQLite(ctx context.Context, path string, logger infra.Logger) (*SessionStoreSQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("repo: open sqlite: %w", err)
	}
	// single connection: writers are serialised by sqlite
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: set WAL mode: %w", err)
	}
	s := &SessionStoreSQLite{db: db, logger: logger}
	if _, err := s.exec(ctx, sqlinline.QCreateSessionsSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: migrate sessions: %w", err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *SessionStoreSQLite) Close() error {
	return s.db.Close()
}

func (s *SessionStoreSQLite) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	marker, body, err := infra.ExtractMarker(query)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("sql", marker).Msg("exec")
	res, err := s.db.ExecContext(ctx, body, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("sql", marker).Msg("exec failed")
	}
	return res, err
}

func (s *SessionStoreSQLite) Load(ctx context.Context, visitorID string) (session.Record, error) {
	marker, body, err := infra.ExtractMarker(sqlinline.QLoadSessionSQLite)
	if err != nil {
		return session.Record{}, err
	}
	s.logger.Debug().Str("sql", marker).Msg("query_row")

	var (
		rec     session.Record
		profile sql.NullString
		admin   int
		updated int64
	)
	err = s.db.QueryRowContext(ctx, body, visitorID).Scan(
		&rec.VisitorID,
		&rec.Token,
		&rec.User.Email,
		&rec.User.Name,
		&profile,
		&admin,
		&updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.Record{}, domain.ErrNotFound
		}
		return session.Record{}, fmt.Errorf("repo: load session: %w", err)
	}
	rec.Admin = admin != 0
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	if profile.Valid {
		if rec.Profile, err = session.DecodeProfile([]byte(profile.String)); err != nil {
			return session.Record{}, err
		}
	}
	return rec, nil
}

func (s *SessionStoreSQLite) Save(ctx context.Context, rec session.Record) error {
	profile, err := session.EncodeProfile(rec.Profile)
	if err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	var profileArg any
	if profile != nil {
		profileArg = string(profile)
	}
	admin := 0
	if rec.Admin {
		admin = 1
	}
	_, err = s.exec(ctx, sqlinline.QUpsertSessionSQLite,
		rec.VisitorID,
		rec.Token,
		rec.User.Email,
		rec.User.Name,
		profileArg,
		admin,
		rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("repo: save session: %w", err)
	}
	return nil
}

func (s *SessionStoreSQLite) Delete(ctx context.Context, visitorID string) error {
	if _, err := s.exec(ctx, sqlinline.QDeleteSessionSQLite, visitorID); err != nil {
		return fmt.Errorf("repo: delete session: %w", err)
	}
	return nil
}

func (s *SessionStoreSQLite) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.exec(ctx, sqlinline.QSweepSessionsSQLite, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("repo: sweep sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repo: sweep sessions: %w", err)
	}
	return int(n), nil
}

var _ session.Store = (*SessionStoreSQLite)(nil)
