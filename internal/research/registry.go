// Package research manages the named research sessions and their plates.
package research

import (
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/plate-labs/internal/plate"
)

var (
	// ErrDuplicateName is returned when a session with the name already exists.
	ErrDuplicateName = errors.New("research already exists")
	// ErrNotFound is returned when no session has the requested name.
	ErrNotFound = errors.New("research not found")
	// ErrInvalidName is returned for names that are empty after trimming.
	ErrInvalidName = errors.New("research name is empty")
)

// Session is one named research run and its plate.
type Session struct {
	Name      string
	Grid      *plate.Grid
	CreatedBy string
	CreatedAt time.Time
}

// Registry is the process-wide set of open research sessions.
// All access is serialized by a single lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	order    []string
	now      func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new session with an empty plate. Names are case-sensitive
// and stored as given.
func (r *Registry) Create(name, createdBy string) (*Session, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[name]; exists {
		return nil, ErrDuplicateName
	}
	s := &Session{
		Name:      name,
		Grid:      plate.New(),
		CreatedBy: createdBy,
		CreatedAt: r.now(),
	}
	r.sessions[name] = s
	r.order = append(r.order, name)
	return s, nil
}

// Get returns the live session. The plate is shared, not copied; mutate it
// through Place so writes stay serialized.
func (r *Registry) Get(name string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[name]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove detaches the session and returns it for a final render.
// The name can be reused immediately.
func (r *Registry) Remove(name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[name]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.sessions, name)
	if i := slices.Index(r.order, name); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return s, nil
}

// All yields every open session in creation order. The sequence works on a
// snapshot of the names taken when iteration starts, so it can be ranged
// over again and is safe to use while other conversations modify the
// registry.
func (r *Registry) All() iter.Seq2[string, *Session] {
	return func(yield func(string, *Session) bool) {
		r.mu.RLock()
		names := slices.Clone(r.order)
		r.mu.RUnlock()

		for _, name := range names {
			r.mu.RLock()
			s, ok := r.sessions[name]
			r.mu.RUnlock()
			if !ok {
				continue
			}
			if !yield(name, s) {
				return
			}
		}
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Place appends objects to the named session's plate and reports how many
// wells were written.
func (r *Registry) Place(name, expertiseID string, objectNumbers []string, count int) (plate.Status, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[name]
	if !ok {
		return plate.GridFull, 0, ErrNotFound
	}
	before := s.Grid.Filled()
	status := s.Grid.Place(expertiseID, objectNumbers, count)
	return status, s.Grid.Filled() - before, nil
}

// Snapshot renders the named session's plate under the registry lock.
func (r *Registry) Snapshot(name string) (plate.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[name]
	if !ok {
		return plate.Table{}, ErrNotFound
	}
	return plate.Render(s.Grid), nil
}

// Summary describes an open session for listings.
type Summary struct {
	Name        string    `json:"name"`
	FilledWells int       `json:"filled_wells"`
	FreeWells   int       `json:"free_wells"`
	CreatedAt   time.Time `json:"created_at"`
}

// Summaries lists every open session in creation order.
func (r *Registry) Summaries() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.order))
	for _, name := range r.order {
		s := r.sessions[name]
		filled := s.Grid.Filled()
		out = append(out, Summary{
			Name:        name,
			FilledWells: filled,
			FreeWells:   plate.Wells - filled,
			CreatedAt:   s.CreatedAt,
		})
	}
	return out
}
