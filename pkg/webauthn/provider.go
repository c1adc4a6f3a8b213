/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webauthn

import (
	"bytes"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	wan "github.com/go-webauthn/webauthn/webauthn"
)

// Ceremonies abstracts the WebAuthn protocol engine so ceremony flows can be
// exercised against a fake authenticator.
type Ceremonies interface {
	BeginRegistration(user wan.User, exclusions []protocol.CredentialDescriptor) (
		*protocol.CredentialCreation, *wan.SessionData, error)
	FinishRegistration(user wan.User, session wan.SessionData, response []byte) (*wan.Credential, error)
	BeginLogin(user wan.User) (*protocol.CredentialAssertion, *wan.SessionData, error)
	FinishLogin(user wan.User, session wan.SessionData, response []byte) (*wan.Credential, error)
}

// Config carries the relying-party parameters for the protocol engine.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
}

// provider implements Ceremonies on top of go-webauthn.
type provider struct {
	engine *wan.WebAuthn
}

// NewCeremonies builds the production ceremony provider.
func NewCeremonies(cfg *Config) (Ceremonies, error) {
	engine, err := wan.New(&wan.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}

	return &provider{engine: engine}, nil
}

func (p *provider) BeginRegistration(user wan.User, exclusions []protocol.CredentialDescriptor) (
	*protocol.CredentialCreation, *wan.SessionData, error) {
	return p.engine.BeginRegistration(user, wan.WithExclusions(exclusions))
}

func (p *provider) FinishRegistration(user wan.User, session wan.SessionData,
	response []byte) (*wan.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse registration response: %w", err)
	}

	return p.engine.CreateCredential(user, session, parsed)
}

func (p *provider) BeginLogin(user wan.User) (*protocol.CredentialAssertion, *wan.SessionData, error) {
	return p.engine.BeginLogin(user)
}

func (p *provider) FinishLogin(user wan.User, session wan.SessionData,
	response []byte) (*wan.Credential, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("parse authentication response: %w", err)
	}

	return p.engine.ValidateLogin(user, session, parsed)
}

// deviceUser adapts a device identifier and its stored credentials to the
// webauthn user contract.
type deviceUser struct {
	id          string
	credentials []wan.Credential
}

func (u *deviceUser) WebAuthnID() []byte {
	return []byte(u.id)
}

func (u *deviceUser) WebAuthnName() string {
	return u.id
}

func (u *deviceUser) WebAuthnDisplayName() string {
	return u.id
}

func (u *deviceUser) WebAuthnIcon() string {
	return ""
}

func (u *deviceUser) WebAuthnCredentials() []wan.Credential {
	return u.credentials
}
