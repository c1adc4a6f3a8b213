/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webauthn

import (
	"sync"
	"time"

	wan "github.com/go-webauthn/webauthn/webauthn"
)

// sessionTTL bounds the lifetime of an in-flight ceremony. Expiry is
// enforced at finish time; pruning the cache is opportunistic, not
// authoritative.
const sessionTTL = 300 * time.Second

// session is the server-side state of one in-flight ceremony.
type session struct {
	deviceID  string
	data      wan.SessionData
	createdAt time.Time
}

func (s *session) expired(now time.Time) bool {
	return now.Sub(s.createdAt) > sessionTTL
}

// sessionStore is a shared challenge-id-to-session map guarded by a mutex.
// The lock is held only for map access, never across verification work.
type sessionStore struct {
	mu      sync.Mutex
	entries map[string]*session
	now     func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		entries: make(map[string]*session),
		now:     time.Now,
	}
}

// put prunes expired entries, then inserts. Reusing a challenge id
// supersedes the previous session.
func (s *sessionStore) put(challengeID string, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for id, entry := range s.entries {
		if entry.expired(now) {
			delete(s.entries, id)
		}
	}

	s.entries[challengeID] = sess
}

// take removes and returns the session for a challenge id. Removal happens
// regardless of expiry, so a consumed challenge id always misses on the next
// lookup.
func (s *sessionStore) take(challengeID string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.entries[challengeID]
	if !ok {
		return nil, false
	}

	delete(s.entries, challengeID)

	return sess, true
}
