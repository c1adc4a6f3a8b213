/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webauthn provides a fake ceremony provider that plays the role of
// both the protocol engine and the authenticator.
package webauthn

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	wan "github.com/go-webauthn/webauthn/webauthn"
)

// MockCeremonies implements the ceremony provider contract with canned
// outcomes. Zero-value fields fall back to benign defaults.
type MockCeremonies struct {
	// RegistrationCredential is returned by FinishRegistration.
	RegistrationCredential *wan.Credential
	// LoginCredential is returned by FinishLogin.
	LoginCredential *wan.Credential

	BeginRegistrationErr  error
	FinishRegistrationErr error
	BeginLoginErr         error
	FinishLoginErr        error

	// LastExclusions records the exclude-list of the most recent
	// BeginRegistration call.
	LastExclusions []protocol.CredentialDescriptor
}

// BeginRegistration returns creation options with a fresh random challenge.
func (m *MockCeremonies) BeginRegistration(user wan.User, exclusions []protocol.CredentialDescriptor) (
	*protocol.CredentialCreation, *wan.SessionData, error) {
	if m.BeginRegistrationErr != nil {
		return nil, nil, m.BeginRegistrationErr
	}

	m.LastExclusions = exclusions

	challenge, err := newChallenge()
	if err != nil {
		return nil, nil, err
	}

	creation := &protocol.CredentialCreation{
		Response: protocol.PublicKeyCredentialCreationOptions{
			Challenge:             challenge,
			CredentialExcludeList: exclusions,
		},
	}

	return creation, &wan.SessionData{
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		UserID:    user.WebAuthnID(),
	}, nil
}

// FinishRegistration returns the canned registration credential.
func (m *MockCeremonies) FinishRegistration(wan.User, wan.SessionData, []byte) (*wan.Credential, error) {
	if m.FinishRegistrationErr != nil {
		return nil, m.FinishRegistrationErr
	}

	if m.RegistrationCredential == nil {
		return nil, fmt.Errorf("mock has no registration credential")
	}

	return m.RegistrationCredential, nil
}

// BeginLogin returns assertion options whose allow-list mirrors the user's
// credentials.
func (m *MockCeremonies) BeginLogin(user wan.User) (*protocol.CredentialAssertion, *wan.SessionData, error) {
	if m.BeginLoginErr != nil {
		return nil, nil, m.BeginLoginErr
	}

	challenge, err := newChallenge()
	if err != nil {
		return nil, nil, err
	}

	var allowed []protocol.CredentialDescriptor

	allowedIDs := make([][]byte, 0)

	for _, credential := range user.WebAuthnCredentials() {
		allowed = append(allowed, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: credential.ID,
		})
		allowedIDs = append(allowedIDs, credential.ID)
	}

	assertion := &protocol.CredentialAssertion{
		Response: protocol.PublicKeyCredentialRequestOptions{
			Challenge:          challenge,
			AllowedCredentials: allowed,
		},
	}

	return assertion, &wan.SessionData{
		Challenge:            base64.RawURLEncoding.EncodeToString(challenge),
		UserID:               user.WebAuthnID(),
		AllowedCredentialIDs: allowedIDs,
	}, nil
}

// FinishLogin returns the canned login credential.
func (m *MockCeremonies) FinishLogin(wan.User, wan.SessionData, []byte) (*wan.Credential, error) {
	if m.FinishLoginErr != nil {
		return nil, m.FinishLoginErr
	}

	if m.LoginCredential == nil {
		return nil, fmt.Errorf("mock has no login credential")
	}

	return m.LoginCredential, nil
}

func newChallenge() (protocol.URLEncodedBase64, error) {
	challenge := make([]byte, 32)

	if _, err := rand.Read(challenge); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}

	return challenge, nil
}
