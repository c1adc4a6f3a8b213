/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did provides the DID identifier syntax and the W3C DID document
// model shared by all resolver methods.
package did

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/flowssi/flownode/pkg/doc/jwk"
)

// ContextV1 is the W3C DID v1 JSON-LD context.
const ContextV1 = "https://www.w3.org/ns/did/v1"

// DID is parsed according to the generic syntax: https://w3c.github.io/did-core/#generic-did-syntax
type DID struct {
	Scheme           string // Scheme is always "did"
	Method           string // Method is the specific DID method
	MethodSpecificID string // MethodSpecificID is the unique ID computed or assigned by the DID method
}

// String returns a string representation of this DID.
func (d *DID) String() string {
	return fmt.Sprintf("%s:%s:%s", d.Scheme, d.Method, d.MethodSpecificID)
}

var didRegex = buildDIDRegex()

func buildDIDRegex() *regexp.Regexp {
	const idchar = `a-zA-Z0-9-_\.`

	return regexp.MustCompile(fmt.Sprintf(`^did:[a-z0-9]+:(:+|[:%%%s]+)*[%%%s]+$`, idchar, idchar))
}

// Parse parses the string according to the generic DID syntax.
// See https://w3c.github.io/did-core/#generic-did-syntax.
func Parse(did string) (*DID, error) {
	if !didRegex.MatchString(did) {
		return nil, fmt.Errorf("invalid did: %s. Make sure it conforms to the generic DID syntax", did)
	}

	const numParts = 3

	parts := strings.SplitN(did, ":", numParts)

	return &DID{
		Scheme:           "did",
		Method:           parts[1],
		MethodSpecificID: parts[2],
	}, nil
}

// Doc is a W3C DID document. Documents are built once by resolution or local
// synthesis and not mutated afterwards.
type Doc struct {
	Context            []string             `json:"@context,omitempty"`
	ID                 string               `json:"id"`
	VerificationMethod []VerificationMethod `json:"verificationMethod,omitempty"`
	Authentication     []string             `json:"authentication,omitempty"`
	AssertionMethod    []string             `json:"assertionMethod,omitempty"`
	KeyAgreement       []string             `json:"keyAgreement,omitempty"`
	Service            []Service            `json:"service,omitempty"`
}

// VerificationMethod is a single key bound to a DID document. Key material is
// either multibase-encoded or an embedded JWK, depending on Type.
type VerificationMethod struct {
	ID                 string   `json:"id"`
	Type               string   `json:"type"`
	Controller         string   `json:"controller"`
	PublicKeyMultibase string   `json:"publicKeyMultibase,omitempty"`
	PublicKeyJwk       *jwk.JWK `json:"publicKeyJwk,omitempty"`
}

// Service is a DID document service endpoint.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	ServiceEndpoint Endpoint `json:"serviceEndpoint"`
}

// Endpoint is a service endpoint: either a bare URI, or a map carrying the
// URI together with routing keys and accepted protocols.
type Endpoint struct {
	URI         string
	RoutingKeys []string
	Accept      []string
}

type endpointMap struct {
	URI         string   `json:"uri"`
	RoutingKeys []string `json:"routingKeys"`
	Accept      []string `json:"accept"`
}

// IsBareURI reports whether the endpoint serializes as a plain URI string.
func (e Endpoint) IsBareURI() bool {
	return len(e.RoutingKeys) == 0 && len(e.Accept) == 0
}

// MarshalJSON renders the endpoint as a bare URI when it has no routing keys
// and no accepted protocols, and as a structured map otherwise.
func (e Endpoint) MarshalJSON() ([]byte, error) {
	if e.IsBareURI() {
		return json.Marshal(e.URI)
	}

	return json.Marshal(endpointMap{URI: e.URI, RoutingKeys: e.RoutingKeys, Accept: e.Accept})
}

// UnmarshalJSON accepts both the bare URI and the structured map form.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err == nil {
		*e = Endpoint{URI: uri}
		return nil
	}

	var m endpointMap
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("service endpoint is neither a URI nor a map: %w", err)
	}

	*e = Endpoint{URI: m.URI, RoutingKeys: m.RoutingKeys, Accept: m.Accept}

	return nil
}

// ParseDocument parses a W3C JSON DID document.
func ParseDocument(data []byte) (*Doc, error) {
	doc := &Doc{}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("did document deserialization failed: %w", err)
	}

	if doc.ID == "" {
		return nil, fmt.Errorf("did document missing id")
	}

	return doc, nil
}

// JSONBytes returns the document serialized with standard W3C field names.
func (doc *Doc) JSONBytes() ([]byte, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("did document serialization failed: %w", err)
	}

	return b, nil
}
