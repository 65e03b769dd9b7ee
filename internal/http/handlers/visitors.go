package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rb-om1999/ensofinal/internal/account"
	"github.com/rb-om1999/ensofinal/internal/authflow"
	"github.com/rb-om1999/ensofinal/internal/domain"
	"github.com/rb-om1999/ensofinal/internal/history"
	"github.com/rb-om1999/ensofinal/internal/session"
	"github.com/rb-om1999/ensofinal/internal/workflow"
)

// Visitor is the client-side state of one browser.
type Visitor struct {
	ID       string
	Session  *session.Manager
	Auth     *authflow.Flow
	Workflow *workflow.Workflow
	Account  *account.Flow
	History  *history.List

	restore sync.Once

	mu       sync.Mutex
	lastSeen time.Time
	flash    string
	authOpen bool
}

// Flash stores a one-shot message for the next render.
func (v *Visitor) Flash(msg string) {
	v.mu.Lock()
	v.flash = msg
	v.mu.Unlock()
}

func (v *Visitor) takeFlash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	msg := v.flash
	v.flash = ""
	return msg
}

// OpenAuth keeps the auth panel open on the next render.
func (v *Visitor) OpenAuth(open bool) {
	v.mu.Lock()
	v.authOpen = open
	v.mu.Unlock()
}

func (v *Visitor) authPanelOpen() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.authOpen
}

// Registry keeps visitors in memory; sessions outlive it through the store.
type Registry struct {
	opts Options
	now  func() time.Time

	mu       sync.Mutex
	visitors map[string]*Visitor
}

// NewRegistry builds an empty registry.
func NewRegistry(opts Options) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{opts: opts, now: now, visitors: make(map[string]*Visitor)}
}

// Get returns the visitor for id, creating it and restoring its stored
// session the first time it is seen.
func (r *Registry) Get(ctx context.Context, id string) *Visitor {
	r.mu.Lock()
	v, ok := r.visitors[id]
	if !ok {
		v = r.build(id)
		r.visitors[id] = v
	}
	r.mu.Unlock()

	v.mu.Lock()
	v.lastSeen = r.now()
	v.mu.Unlock()

	v.restore.Do(func() {
		err := v.Session.Restore(ctx)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			r.opts.Logger.Warn().Err(err).Str("visitor_id", id).Msg("handlers: session restore failed")
		}
	})
	return v
}

// Prune drops visitors not seen since cutoff and returns how many.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, v := range r.visitors {
		v.mu.Lock()
		idle := v.lastSeen.Before(cutoff)
		v.mu.Unlock()
		if idle {
			delete(r.visitors, id)
			n++
		}
	}
	return n
}

// Len reports the number of visitors held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

func (r *Registry) build(id string) *Visitor {
	logger := r.opts.Logger.With().Str("visitor_id", id).Logger()
	client := r.opts.API
	sess := session.NewManager(id, session.Options{
		Backend: client,
		Store:   r.opts.Store,
		Admins:  r.opts.Admins,
		Logger:  &logger,
		Now:     r.opts.Now,
	})
	return &Visitor{
		ID:      id,
		Session: sess,
		Auth:    authflow.New(sess, client),
		Workflow: workflow.New(workflow.Options{
			Backend:   client,
			Session:   sess,
			Providers: r.opts.Providers,
			Logger:    &logger,
		}),
		Account: account.New(sess, client, &logger),
		History: history.New(client, sess, &logger),
	}
}
