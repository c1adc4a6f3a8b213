/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage provides store fakes with failure injection, delegating to
// the in-memory provider when no failure is configured.
package storage

import (
	"github.com/flowssi/flownode/pkg/storage"
	"github.com/flowssi/flownode/pkg/storage/mem"
)

// MockProvider bundles injectable stores over an in-memory provider.
type MockProvider struct {
	Users       *MockUserStore
	Credentials *MockCredentialStore
	Spaces      storage.SpaceStore
}

// NewMockProvider creates a provider whose stores succeed until an error is
// injected.
func NewMockProvider() *MockProvider {
	inner := mem.NewProvider()

	return &MockProvider{
		Users:       &MockUserStore{Delegate: inner.UserStore()},
		Credentials: &MockCredentialStore{Delegate: inner.CredentialStore()},
		Spaces:      inner.SpaceStore(),
	}
}

// UserStore returns the user store.
func (p *MockProvider) UserStore() storage.UserStore {
	return p.Users
}

// CredentialStore returns the credential store.
func (p *MockProvider) CredentialStore() storage.CredentialStore {
	return p.Credentials
}

// SpaceStore returns the space store.
func (p *MockProvider) SpaceStore() storage.SpaceStore {
	return p.Spaces
}

// MockUserStore injects failures in front of a real user store.
type MockUserStore struct {
	Delegate  storage.UserStore
	FindErr   error
	CreateErr error
}

// FindByDID returns FindErr when set, else delegates.
func (s *MockUserStore) FindByDID(did string) (*storage.User, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	return s.Delegate.FindByDID(did)
}

// Create returns CreateErr when set, else delegates.
func (s *MockUserStore) Create(user *storage.User) (*storage.User, error) {
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}

	return s.Delegate.Create(user)
}

// MockCredentialStore injects failures in front of a real credential store.
type MockCredentialStore struct {
	Delegate         storage.CredentialStore
	StoreErr         error
	FindErr          error
	UpdateCounterErr error
}

// Store returns StoreErr when set, else delegates.
func (s *MockCredentialStore) Store(record *storage.CredentialRecord) (*storage.CredentialRecord, error) {
	if s.StoreErr != nil {
		return nil, s.StoreErr
	}

	return s.Delegate.Store(record)
}

// FindByDevice returns FindErr when set, else delegates.
func (s *MockCredentialStore) FindByDevice(deviceID string) ([]*storage.CredentialRecord, error) {
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	return s.Delegate.FindByDevice(deviceID)
}

// UpdateCounter returns UpdateCounterErr when set, else delegates.
func (s *MockCredentialStore) UpdateCounter(credentialID []byte, signCount uint32) error {
	if s.UpdateCounterErr != nil {
		return s.UpdateCounterErr
	}

	return s.Delegate.UpdateCounter(credentialID, signCount)
}
