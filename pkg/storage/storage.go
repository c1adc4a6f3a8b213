/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package storage defines the persistence contracts for users, credentials
// and spaces. The node core treats stores as external collaborators: a store
// failure surfaces immediately, with no retry logic around it.
package storage

import (
	"errors"
	"time"
)

// ErrDataNotFound is returned when a queried record does not exist.
var ErrDataNotFound = errors.New("data not found")

// ErrDuplicate is returned when an insert violates a uniqueness constraint,
// such as re-storing a credential whose raw id is already known.
var ErrDuplicate = errors.New("duplicate record")

// User is an identity holder keyed by their DID.
type User struct {
	ID          int64
	DID         string
	Username    string
	DisplayName string
	DeviceIDs   []string
	DIDDocument string
	CreatedAt   time.Time
	LastLogin   *time.Time
}

// CredentialRecord is one registered WebAuthn credential, linked to a user.
type CredentialRecord struct {
	ID                  int64
	UserID              *int64
	DeviceID            string
	CredentialID        []byte
	PublicKey           []byte
	SignCount           uint32
	AuthenticationCount int64
	Name                string
	Attestation         string
	CredentialJSON      string
	CreatedAt           time.Time
	LastAuthenticated   *time.Time
}

// Space is a provisioned storage location, keyed by the hash of its path.
type Space struct {
	ID        int64
	Key       string
	Location  string
	CreatedAt time.Time
}

// UserStore persists users.
type UserStore interface {
	// FindByDID returns the user for a DID, or ErrDataNotFound.
	FindByDID(did string) (*User, error)
	// Create persists a new user and returns it with its assigned ID.
	Create(user *User) (*User, error)
}

// CredentialStore persists WebAuthn credentials.
type CredentialStore interface {
	// Store persists a new credential record and returns it with its ID.
	// Credential ids are unique: storing an already-known id returns
	// ErrDuplicate.
	Store(record *CredentialRecord) (*CredentialRecord, error)
	// FindByDevice returns all credentials registered for a device.
	FindByDevice(deviceID string) ([]*CredentialRecord, error)
	// UpdateCounter persists a new signature counter for a credential,
	// or returns ErrDataNotFound when no such credential exists.
	UpdateCounter(credentialID []byte, signCount uint32) error
}

// SpaceStore persists spaces.
type SpaceStore interface {
	// FindByKey returns the space for a key, or ErrDataNotFound.
	FindByKey(key string) (*Space, error)
	// Create persists a new space and returns it with its assigned ID.
	Create(space *Space) (*Space, error)
}

// Provider bundles the stores a node needs.
type Provider interface {
	UserStore() UserStore
	CredentialStore() CredentialStore
	SpaceStore() SpaceStore
}
