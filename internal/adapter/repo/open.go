package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
)

// OpenSessionStore picks the backend from the URL scheme: empty or "memory:"
// keeps sessions in process, "postgres://" and "postgresql://" use a pgx pool,
// "sqlite:<path>" or "sqlite://<path>" a local file. The returned func releases
// the backend.
func OpenSessionStore(ctx context.Context, rawURL string, logger infra.Logger) (session.Store, func(), error) {
	rawURL = strings.TrimSpace(rawURL)
	switch {
	case rawURL == "" || rawURL == "memory:" || rawURL == "memory://":
		return NewMemoryStore(), func() {}, nil
	case strings.HasPrefix(rawURL, "postgres://") || strings.HasPrefix(rawURL, "postgresql://"):
		pool, err := infra.NewDBPool(ctx, rawURL)
		if err != nil {
			return nil, nil, err
		}
		store := NewSessionStorePG(pool, logger)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	case strings.HasPrefix(rawURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(rawURL, "sqlite:"), "//")
		if path == "" {
			return nil, nil, fmt.Errorf("repo: sqlite session store needs a file path")
		}
		store, err := OpenSessionStoreSQLite(ctx, path, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("repo: unsupported SESSION_STORE_URL %q", rawURL)
	}
}
