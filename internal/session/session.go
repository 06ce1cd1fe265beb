// Package session holds per-browser editing sessions: the rubric
// document being edited, view state, and the last grading report.
// Sessions live in memory only; the rubric itself is the unit of
// persistence via export and library save.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sheetmark/sheetmark/internal/results"
	"github.com/sheetmark/sheetmark/internal/rubric"
	"github.com/sheetmark/sheetmark/internal/view"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrStaleGeneration is returned when a document replacement carries
	// a generation that no longer matches the session, meaning a newer
	// replacement landed first (a slow auto-rubric response, say).
	ErrStaleGeneration = errors.New("session document changed since request was issued")
)

// Session is one editing session. Callers mutate it only through
// Store.Update, which serializes access per session.
type Session struct {
	ID         string
	Doc        *rubric.Rubric
	View       *view.State
	Report     *results.Report
	ReportRaw  []byte // Last grading response, verbatim, for download
	Generation int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is an in-memory session registry safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session with an empty rubric document.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		Doc:       rubric.New(),
		View:      view.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Delete removes a session. Unknown ids are a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Update runs fn against the named session under the store lock. Any
// error from fn is returned unchanged; on success the session's
// UpdatedAt is bumped.
func (s *Store) Update(id string, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(sess); err != nil {
		return err
	}
	sess.UpdatedAt = time.Now()
	return nil
}

// View runs fn against the named session read-only, under the store
// lock. fn must not retain references past its return.
func (s *Store) View(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	fn(sess)
	return nil
}

// Generation returns the session's current document generation, used by
// callers that will later call ReplaceDoc.
func (s *Store) Generation(id string) (int64, error) {
	var gen int64
	err := s.View(id, func(sess *Session) { gen = sess.Generation })
	return gen, err
}

// ReplaceDoc swaps in a whole new document (import, auto-rubric,
// from-ranges). When ifGeneration is non-negative it must match the
// session's current generation or the replacement is rejected as stale.
// A successful replacement bumps the generation, resets view state, and
// clears the last report.
func (s *Store) ReplaceDoc(id string, doc *rubric.Rubric, ifGeneration int64) error {
	return s.Update(id, func(sess *Session) error {
		if ifGeneration >= 0 && ifGeneration != sess.Generation {
			return ErrStaleGeneration
		}
		sess.Doc = doc
		sess.View = view.NewState()
		sess.Report = nil
		sess.ReportRaw = nil
		sess.Generation++
		return nil
	})
}
