package repo

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
)

func sampleRecord(id string, updated time.Time) session.Record {
	bal, _ := domain.ParseBalance("1500")
	return session.Record{
		VisitorID: id,
		Token:     "tok-" + id,
		User:      domain.User{Email: id + "@example.com", Name: "Visitor " + id},
		Profile: &domain.UserProfile{
			Email:            id + "@example.com",
			Plan:             domain.UserPlanFree,
			Role:             domain.UserRoleUser,
			CreditsRemaining: 2,
			RiskProfile:      domain.RiskConservative,
			Balance:          bal,
		},
		UpdatedAt: updated,
	}
}

// exerciseStore runs the same contract against every backend.
func exerciseStore(t *testing.T, store session.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Load(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Save(ctx, sampleRecord("a", now.Add(-72*time.Hour))); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := store.Save(ctx, sampleRecord("b", now)); err != nil {
		t.Fatalf("save b: %v", err)
	}

	got, err := store.Load(ctx, "b")
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if got.Token != "tok-b" || got.User.Name != "Visitor b" {
		t.Fatalf("record = %+v", got)
	}
	if got.Profile == nil || got.Profile.CreditsRemaining != 2 || got.Profile.Balance.String() != "1500" {
		t.Fatalf("profile = %+v", got.Profile)
	}

	updated := sampleRecord("b", now)
	updated.Token = "tok-b2"
	updated.Profile = nil
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("overwrite b: %v", err)
	}
	got, err = store.Load(ctx, "b")
	if err != nil || got.Token != "tok-b2" || got.Profile != nil {
		t.Fatalf("overwritten record = %+v, %v", got, err)
	}

	n, err := store.Sweep(ctx, now.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("Sweep = %d, %v; want 1", n, err)
	}
	if _, err := store.Load(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("swept record still loads: %v", err)
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "b"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("deleted record still loads: %v", err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStoreContract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	store, err := OpenSessionStoreSQLite(context.Background(), path, *infra.DiscardLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestOpenSessionStoreSchemes(t *testing.T) {
	ctx := context.Background()
	logger := *infra.DiscardLogger()

	store, closeFn, err := OpenSessionStore(ctx, "", logger)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	closeFn()
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("empty url store = %T, want *MemoryStore", store)
	}

	path := filepath.Join(t.TempDir(), "s.db")
	store, closeFn, err = OpenSessionStore(ctx, "sqlite://"+path, logger)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer closeFn()
	if _, ok := store.(*SessionStoreSQLite); !ok {
		t.Fatalf("sqlite url store = %T", store)
	}

	if _, _, err := OpenSessionStore(ctx, "redis://localhost", logger); err == nil {
		t.Fatalf("unsupported scheme should fail")
	}
}

type recordingExecutor struct {
	execs []string
	args  [][]any
	row   pgx.Row
	tag   pgconn.CommandTag
}

func (r *recordingExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	r.execs = append(r.execs, query)
	r.args = append(r.args, args)
	return r.tag, nil
}

func (r *recordingExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	r.execs = append(r.execs, query)
	r.args = append(r.args, args)
	return r.row
}

func (r *recordingExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

type scanRow func(dest ...any) error

func (s scanRow) Scan(dest ...any) error { return s(dest...) }

func TestSessionStorePGStripsMarkersAndMapsNoRows(t *testing.T) {
	exec := &recordingExecutor{
		row: scanRow(func(...any) error { return pgx.ErrNoRows }),
		tag: pgconn.NewCommandTag("DELETE 3"),
	}
	store := NewSessionStorePG(exec, *infra.DiscardLogger())
	ctx := context.Background()

	if _, err := store.Load(ctx, "v"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("load error = %v, want ErrNotFound", err)
	}
	if err := store.Save(ctx, sampleRecord("v", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	n, err := store.Sweep(ctx, time.Now())
	if err != nil || n != 3 {
		t.Fatalf("sweep = %d, %v; want 3", n, err)
	}

	for _, q := range exec.execs {
		if strings.HasPrefix(strings.TrimSpace(q), "--sql") {
			t.Fatalf("marker reached the driver: %q", q)
		}
	}
	saveArgs := exec.args[1]
	if saveArgs[0] != "v" || saveArgs[1] != "tok-v" {
		t.Fatalf("save args = %v", saveArgs)
	}
	if profile, ok := saveArgs[4].(string); !ok || !strings.Contains(profile, `"credits_remaining":2`) {
		t.Fatalf("profile arg = %#v", saveArgs[4])
	}
}

func TestSessionStorePGLoadScansRecord(t *testing.T) {
	updated := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	exec := &recordingExecutor{row: scanRow(func(dest ...any) error {
		*dest[0].(*string) = "v"
		*dest[1].(*string) = "tok"
		*dest[2].(*string) = "a@b.c"
		*dest[3].(*string) = "Ada"
		*dest[4].(*[]byte) = []byte(`{"plan":"pro","credits_remaining":0}`)
		*dest[5].(*bool) = true
		*dest[6].(*time.Time) = updated
		return nil
	})}
	store := NewSessionStorePG(exec, *infra.DiscardLogger())

	rec, err := store.Load(context.Background(), "v")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if rec.Token != "tok" || !rec.Admin || !rec.UpdatedAt.Equal(updated) {
		t.Fatalf("record = %+v", rec)
	}
	if rec.Profile == nil || rec.Profile.Plan != domain.UserPlanPro {
		t.Fatalf("profile = %+v", rec.Profile)
	}
}
