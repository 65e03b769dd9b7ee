// Package history lists past analyses with one entry expanded at a time.
package history

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rb-om1999/ensofinal/internal/api"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/infra"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/workflow"
)

// DefaultDateLayout is used when the caller has no locale preference.
const DefaultDateLayout = "Jan 2, 2006 15:04"

// Backend lists past analyses.
type Backend interface {
	Analyses(ctx context.Context, tokens api.TokenSource) ([]domain.HistoryEntry, error)
}

// Session is the identity history is fetched for.
type Session interface {
	api.TokenSource
	Snapshot() session.State
	HandleError(ctx context.Context, err error) bool
}

// List holds the fetched history of one visitor.
type List struct {
	backend Backend
	session Session
	logger  *infra.Logger

	mu       sync.Mutex
	entries  []domain.HistoryEntry
	loaded   bool
	expanded string
	errMsg   string
}

// New builds an empty List.
func New(b Backend, s Session, logger *infra.Logger) *List {
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	return &List{backend: b, session: s, logger: logger}
}

// Load fetches the history once for a page view, newest first. Expanding and
// collapsing entries afterwards does not refetch.
func (l *List) Load(ctx context.Context) error {
	if !l.session.Snapshot().Authenticated() {
		l.mu.Lock()
		l.entries, l.loaded, l.expanded, l.errMsg = nil, false, "", ""
		l.mu.Unlock()
		return domain.ErrUnauthorized
	}
	entries, err := l.backend.Analyses(ctx, l.session)
	if err != nil {
		l.session.HandleError(ctx, err)
		l.mu.Lock()
		l.errMsg = api.Message(err, "Failed to load analysis history")
		l.mu.Unlock()
		l.logger.Warn().Err(err).Msg("history: load failed")
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = entries
	l.loaded = true
	l.errMsg = ""
	if l.expanded != "" && l.indexLocked(l.expanded) < 0 {
		l.expanded = ""
	}
	return nil
}

// Toggle expands the entry with id, collapsing any other. Toggling the open
// entry collapses it.
func (l *List) Toggle(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.indexLocked(id) < 0 {
		return fmt.Errorf("history: %w: entry %q", domain.ErrNotFound, id)
	}
	if l.expanded == id {
		l.expanded = ""
	} else {
		l.expanded = id
	}
	return nil
}

// Expanded returns the id of the open entry, or "".
func (l *List) Expanded() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.expanded
}

func (l *List) indexLocked(id string) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entry is one row of the history page.
type Entry struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	When      string           `json:"when"`
	PlanUsed  string           `json:"plan_used"`
	Movement  string           `json:"movement"`
	Expanded  bool             `json:"expanded"`
	Result    *workflow.Result `json:"result,omitempty"`
}

// View is the render model of the history page.
type View struct {
	Loaded  bool    `json:"loaded"`
	Empty   bool    `json:"empty"`
	Error   string  `json:"error,omitempty"`
	Entries []Entry `json:"entries"`
}

// View renders the list. Expanded entries are gated by plan like live results;
// dateLayout is a time layout chosen from the visitor's locale.
func (l *List) View(pro bool, dateLayout string, loc *time.Location) View {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	if loc == nil {
		loc = time.UTC
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	v := View{Loaded: l.loaded, Error: l.errMsg, Empty: l.loaded && len(l.entries) == 0}
	for _, e := range l.entries {
		row := Entry{
			ID:        e.ID,
			Symbol:    e.Symbol,
			Timeframe: e.Timeframe,
			PlanUsed:  domain.PlanLabel(e.PlanUsed, false),
			Movement:  e.Analysis.Movement,
			Expanded:  e.ID == l.expanded,
		}
		if !e.Timestamp.IsZero() {
			row.When = e.Timestamp.In(loc).Format(dateLayout)
		}
		if row.Expanded {
			r := workflow.RenderResult(e.Analysis, pro)
			row.Result = &r
		}
		v.Entries = append(v.Entries, row)
	}
	return v
}
