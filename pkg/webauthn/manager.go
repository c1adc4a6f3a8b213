/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webauthn

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	wan "github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"

	"github.com/flowssi/flownode/pkg/common/log"
	"github.com/flowssi/flownode/pkg/storage"
)

var logger = log.New("flownode/webauthn")

// Ceremony failure modes.
var (
	// ErrMismatchedChallenge is returned when a finish call references a
	// challenge id with no session, including ids already consumed.
	ErrMismatchedChallenge = errors.New("mismatched challenge")
	// ErrChallengeNotFound is returned when a session exists but has
	// outlived its TTL.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrCredentialNotFound is returned when a device has no registered
	// credentials.
	ErrCredentialNotFound = errors.New("no credentials registered for device")
	// ErrCredentialRetrieval wraps store failures while reading credentials.
	ErrCredentialRetrieval = errors.New("credential retrieval failed")
	// ErrCredentialPersistence wraps store failures while writing users or
	// credentials.
	ErrCredentialPersistence = errors.New("credential persistence failed")
	// ErrCounterUpdate wraps store failures while persisting a signature
	// counter.
	ErrCounterUpdate = errors.New("signature counter update failed")
)

// RegistrationChallenge is the server's response to a registration start.
type RegistrationChallenge struct {
	ChallengeID string                       `json:"challenge_id"`
	Options     *protocol.CredentialCreation `json:"options"`
}

// AuthenticationChallenge is the server's response to an authentication
// start.
type AuthenticationChallenge struct {
	ChallengeID string                        `json:"challenge_id"`
	Options     *protocol.CredentialAssertion `json:"options"`
}

// RegistrationResult is the outcome of a completed registration: the derived
// DID and its document serialized as JSON.
type RegistrationResult struct {
	DID         string `json:"did"`
	DIDDocument string `json:"did_document"`
}

// VerificationResult is the outcome of a completed authentication.
type VerificationResult struct {
	CredentialID   string `json:"credential_id"`
	Counter        uint32 `json:"counter"`
	UserVerified   bool   `json:"user_verified"`
	BackupEligible bool   `json:"backup_eligible"`
	BackupState    bool   `json:"backup_state"`
}

// Manager runs WebAuthn ceremonies: two state machines (registration and
// authentication) sharing one session cache keyed by challenge id.
type Manager struct {
	ceremonies  Ceremonies
	users       storage.UserStore
	credentials storage.CredentialStore
	sessions    *sessionStore
}

// NewManager wires a ceremony provider and storage provider into a manager.
func NewManager(ceremonies Ceremonies, provider storage.Provider) *Manager {
	return &Manager{
		ceremonies:  ceremonies,
		users:       provider.UserStore(),
		credentials: provider.CredentialStore(),
		sessions:    newSessionStore(),
	}
}

// StartRegistration begins a registration ceremony for a device. Credentials
// already registered by the device populate the exclude-list so the same
// authenticator cannot be enrolled twice.
func (m *Manager) StartRegistration(deviceID string) (*RegistrationChallenge, error) {
	records, err := m.credentials.FindByDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialRetrieval, err)
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(records))

	for _, record := range records {
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: record.CredentialID,
		})
	}

	options, sessionData, err := m.ceremonies.BeginRegistration(&deviceUser{id: deviceID}, exclusions)
	if err != nil {
		return nil, fmt.Errorf("begin registration: %w", err)
	}

	challengeID, err := registrationChallengeID(sessionData.Challenge)
	if err != nil {
		return nil, err
	}

	m.sessions.put(challengeID, &session{
		deviceID:  deviceID,
		data:      *sessionData,
		createdAt: m.sessions.now(),
	})

	logger.Debugf("registration started for device %s", deviceID)

	return &RegistrationChallenge{ChallengeID: challengeID, Options: options}, nil
}

// registrationChallengeID derives the session cache key from the raw
// challenge bytes.
func registrationChallengeID(challenge string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(challenge)
	if err != nil {
		return "", fmt.Errorf("decode challenge: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// FinishRegistration completes a registration ceremony: it consumes the
// session, verifies the authenticator response, derives the passkey DID and
// document, and persists the user and credential. Registering a second
// passkey that derives the same DID reuses the existing user record, and a
// credential id that is already stored is left as is.
func (m *Manager) FinishRegistration(challengeID string, response []byte) (*RegistrationResult, error) {
	sess, err := m.consume(challengeID)
	if err != nil {
		return nil, err
	}

	credential, err := m.ceremonies.FinishRegistration(&deviceUser{id: sess.deviceID}, sess.data, response)
	if err != nil {
		return nil, fmt.Errorf("finish registration: %w", err)
	}

	did, key, err := DIDKeyFromCredential(credential)
	if err != nil {
		return nil, fmt.Errorf("derive DID: %w", err)
	}

	docBytes, err := CreateDIDDocument(did, key).JSONBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize DID document: %w", err)
	}

	user, err := m.findOrCreateUser(did, sess.deviceID, string(docBytes))
	if err != nil {
		return nil, err
	}

	_, err = m.credentials.Store(&storage.CredentialRecord{
		UserID:         &user.ID,
		DeviceID:       sess.deviceID,
		CredentialID:   credential.ID,
		PublicKey:      credential.PublicKey,
		SignCount:      credential.Authenticator.SignCount,
		Attestation:    credential.AttestationType,
		CredentialJSON: string(response),
	})
	if err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialPersistence, err)
	}

	logger.Infof("registered credential for %s on device %s", did, sess.deviceID)

	return &RegistrationResult{DID: did, DIDDocument: string(docBytes)}, nil
}

func (m *Manager) findOrCreateUser(did, deviceID, docJSON string) (*storage.User, error) {
	user, err := m.users.FindByDID(did)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, storage.ErrDataNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCredentialRetrieval, err)
	}

	user, err = m.users.Create(&storage.User{
		DID:         did,
		Username:    deviceID,
		DisplayName: deviceID,
		DeviceIDs:   []string{deviceID},
		DIDDocument: docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialPersistence, err)
	}

	return user, nil
}

// StartAuthentication begins an authentication ceremony for a device with at
// least one registered credential. The challenge id is a fresh random id,
// unrelated to the challenge bytes.
func (m *Manager) StartAuthentication(deviceID string) (*AuthenticationChallenge, error) {
	user, err := m.deviceUserWithCredentials(deviceID)
	if err != nil {
		return nil, err
	}

	options, sessionData, err := m.ceremonies.BeginLogin(user)
	if err != nil {
		return nil, fmt.Errorf("begin authentication: %w", err)
	}

	challengeID := uuid.New().String()

	m.sessions.put(challengeID, &session{
		deviceID:  deviceID,
		data:      *sessionData,
		createdAt: m.sessions.now(),
	})

	logger.Debugf("authentication started for device %s", deviceID)

	return &AuthenticationChallenge{ChallengeID: challengeID, Options: options}, nil
}

// FinishAuthentication completes an authentication ceremony and persists the
// updated signature counter for the asserted credential.
func (m *Manager) FinishAuthentication(challengeID string, response []byte) (*VerificationResult, error) {
	sess, err := m.consume(challengeID)
	if err != nil {
		return nil, err
	}

	user, err := m.deviceUserWithCredentials(sess.deviceID)
	if err != nil {
		return nil, err
	}

	credential, err := m.ceremonies.FinishLogin(user, sess.data, response)
	if err != nil {
		return nil, fmt.Errorf("finish authentication: %w", err)
	}

	if err := m.credentials.UpdateCounter(credential.ID, credential.Authenticator.SignCount); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCounterUpdate, err)
	}

	return &VerificationResult{
		CredentialID:   base64.RawURLEncoding.EncodeToString(credential.ID),
		Counter:        credential.Authenticator.SignCount,
		UserVerified:   credential.Flags.UserVerified,
		BackupEligible: credential.Flags.BackupEligible,
		BackupState:    credential.Flags.BackupState,
	}, nil
}

// consume removes the session for a challenge id and enforces expiry. A
// missing session and an expired one are both terminal; the session is gone
// either way, so retrying the same challenge id always fails.
func (m *Manager) consume(challengeID string) (*session, error) {
	sess, ok := m.sessions.take(challengeID)
	if !ok {
		return nil, ErrMismatchedChallenge
	}

	if sess.expired(m.sessions.now()) {
		return nil, ErrChallengeNotFound
	}

	return sess, nil
}

func (m *Manager) deviceUserWithCredentials(deviceID string) (*deviceUser, error) {
	records, err := m.credentials.FindByDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCredentialRetrieval, err)
	}

	if len(records) == 0 {
		return nil, ErrCredentialNotFound
	}

	credentials := make([]wan.Credential, 0, len(records))

	for _, record := range records {
		credentials = append(credentials, wan.Credential{
			ID:        record.CredentialID,
			PublicKey: record.PublicKey,
			Authenticator: wan.Authenticator{
				SignCount: record.SignCount,
			},
		})
	}

	return &deviceUser{id: deviceID, credentials: credentials}, nil
}
