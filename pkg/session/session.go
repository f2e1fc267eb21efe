// Package session keeps the view sessions of the HTTP viewer.
//
// A session is one browser tab looking at a trace: it owns a
// [viewport.Controller] and therefore its own active root, scroll offset
// and color cache. Sessions live in memory only and expire after a period
// of inactivity; every successful lookup extends the deadline.
//
// # Usage
//
//	store := session.NewMemoryStore(30 * time.Minute)
//	go store.Run(ctx, time.Minute) // periodic cleanup
//
//	sess, err := session.New(viewport.New(src), store.TTL())
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess, err = store.Get(ctx, id)
//	err = sess.Do(func(c *viewport.Controller) error {
//	    _, err := c.ScrollBy(10)
//	    return err
//	})
//
// Controllers are not safe for concurrent use, so all access goes through
// [Session.Do], which serializes callers.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/bbflame/pkg/viewport"
)

// DefaultTTL is the default idle lifetime of a session.
const DefaultTTL = 30 * time.Minute

// Session is one view of a trace.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	expiresAt time.Time
	ctrl      *viewport.Controller
}

// Info is a point-in-time description of a session.
type Info struct {
	ID        string    `json:"id"`
	Root      int       `json:"root"`
	Offset    int64     `json:"offset"`
	Width     int64     `json:"width"`
	Colors    int       `json:"colors"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New creates a session around ctrl with a random UUID.
func New(ctrl *viewport.Controller, ttl time.Duration) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:        id.String(),
		CreatedAt: now,
		expiresAt: now.Add(ttl),
		ctrl:      ctrl,
	}, nil
}

// Do runs fn with exclusive access to the session's controller.
func (s *Session) Do(fn func(*viewport.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.ctrl)
}

// Info describes the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.ID,
		Root:      s.ctrl.Active(),
		Offset:    s.ctrl.Offset(),
		Width:     s.ctrl.Width(),
		Colors:    s.ctrl.Engine().Colors().Len(),
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.expiresAt,
	}
}

// ExpiresAt returns the current deadline.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// IsExpired reports whether the session's deadline is before now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt())
}

func (s *Session) touch(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	s.expiresAt = now.Add(ttl)
	s.mu.Unlock()
}

// Store is the interface for session storage backends.
type Store interface {
	// Get returns the session with id, or an ErrCodeSessionNotFound error
	// when it does not exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
}
