/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mem provides an in-memory storage provider, used by tests and by
// nodes run without a database.
package mem

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/flowssi/flownode/pkg/storage"
)

// Provider is an in-memory implementation of storage.Provider.
type Provider struct {
	users       *userStore
	credentials *credentialStore
	spaces      *spaceStore
}

// NewProvider creates an empty in-memory provider.
func NewProvider() *Provider {
	return &Provider{
		users:       &userStore{byDID: make(map[string]*storage.User)},
		credentials: &credentialStore{},
		spaces:      &spaceStore{byKey: make(map[string]*storage.Space)},
	}
}

// UserStore returns the user store.
func (p *Provider) UserStore() storage.UserStore {
	return p.users
}

// CredentialStore returns the credential store.
func (p *Provider) CredentialStore() storage.CredentialStore {
	return p.credentials
}

// SpaceStore returns the space store.
func (p *Provider) SpaceStore() storage.SpaceStore {
	return p.spaces
}

type userStore struct {
	mu     sync.RWMutex
	nextID int64
	byDID  map[string]*storage.User
}

func (s *userStore) FindByDID(did string) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byDID[did]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", did, storage.ErrDataNotFound)
	}

	copied := *user

	return &copied, nil
}

func (s *userStore) Create(user *storage.User) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++

	copied := *user
	copied.ID = s.nextID

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.byDID[copied.DID] = &copied

	result := copied

	return &result, nil
}

type credentialStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []*storage.CredentialRecord
}

func (s *credentialStore) Store(record *storage.CredentialRecord) (*storage.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.records {
		if bytes.Equal(existing.CredentialID, record.CredentialID) {
			return nil, fmt.Errorf("credential id: %w", storage.ErrDuplicate)
		}
	}

	s.nextID++

	copied := *record
	copied.ID = s.nextID

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.records = append(s.records, &copied)

	result := copied

	return &result, nil
}

func (s *credentialStore) FindByDevice(deviceID string) ([]*storage.CredentialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*storage.CredentialRecord

	for _, record := range s.records {
		if record.DeviceID == deviceID {
			copied := *record
			found = append(found, &copied)
		}
	}

	return found, nil
}

func (s *credentialStore) UpdateCounter(credentialID []byte, signCount uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	for _, record := range s.records {
		if bytes.Equal(record.CredentialID, credentialID) {
			record.SignCount = signCount
			record.AuthenticationCount++
			record.LastAuthenticated = &now

			return nil
		}
	}

	return fmt.Errorf("credential: %w", storage.ErrDataNotFound)
}

type spaceStore struct {
	mu     sync.RWMutex
	nextID int64
	byKey  map[string]*storage.Space
}

func (s *spaceStore) FindByKey(key string) (*storage.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	space, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", key, storage.ErrDataNotFound)
	}

	copied := *space

	return &copied, nil
}

func (s *spaceStore) Create(space *storage.Space) (*storage.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++

	copied := *space
	copied.ID = s.nextID

	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now().UTC()
	}

	s.byKey[copied.Key] = &copied

	result := copied

	return &result, nil
}
