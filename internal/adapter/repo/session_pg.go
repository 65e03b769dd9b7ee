package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/sqlinline"
)

// SessionStorePG implements session.Store backed by PostgreSQL.
type SessionStorePG struct {
	db infra.SQLExecutor
}

// NewSessionStorePG wraps db (usually a pgxpool.Pool) in a marker-checking runner.
func NewSessionStorePG(db infra.SQLExecutor, logger infra.Logger) *SessionStorePG {
	return &SessionStorePG{db: infra.NewSQLRunner(db, logger)}
}

// Migrate creates the sessions table when missing.
func (s *SessionStorePG) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, sqlinline.QCreateSessionsPG); err != nil {
		return fmt.Errorf("repo: migrate sessions: %w", err)
	}
	return nil
}

func (s *SessionStorePG) Load(ctx context.Context, visitorID string) (session.Record, error) {
	var (
		rec     session.Record
		profile []byte
	)
	err := s.db.QueryRow(ctx, sqlinline.QLoadSessionPG, visitorID).Scan(
		&rec.VisitorID,
		&rec.Token,
		&rec.User.Email,
		&rec.User.Name,
		&profile,
		&rec.Admin,
		&rec.UpdatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return session.Record{}, domain.ErrNotFound
		}
		return session.Record{}, fmt.Errorf("repo: load session: %w", err)
	}
	if rec.Profile, err = session.DecodeProfile(profile); err != nil {
		return session.Record{}, err
	}
	return rec, nil
}

func (s *SessionStorePG) Save(ctx context.Context, rec session.Record) error {
	profile, err := session.EncodeProfile(rec.Profile)
	if err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	var profileArg any
	if profile != nil {
		profileArg = string(profile)
	}
	_, err = s.db.Exec(ctx, sqlinline.QUpsertSessionPG,
		rec.VisitorID,
		rec.Token,
		rec.User.Email,
		rec.User.Name,
		profileArg,
		rec.Admin,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repo: save session: %w", err)
	}
	return nil
}

func (s *SessionStorePG) Delete(ctx context.Context, visitorID string) error {
	if _, err := s.db.Exec(ctx, sqlinline.QDeleteSessionPG, visitorID); err != nil {
		return fmt.Errorf("repo: delete session: %w", err)
	}
	return nil
}

func (s *SessionStorePG) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, sqlinline.QSweepSessionsPG, cutoff)
	if err != nil {
		return 0, fmt.Errorf("repo: sweep sessions: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

var _ session.Store = (*SessionStorePG)(nil)
