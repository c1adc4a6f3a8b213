/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package key resolves the deterministic did:key and did:jwk methods locally,
// expanding the method-specific id into a document without any network access.
package key

import (
	"context"
	"crypto/elliptic"
	"encoding/base64"
	"fmt"
	"strings"

	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/doc/jwk"
	"github.com/flowssi/flownode/pkg/vdr/api"
	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

const (
	didKeyMethod = "key"
	didJWKMethod = "jwk"

	ed25519VerificationKey2020 = "Ed25519VerificationKey2020"
	jsonWebKey2020             = "JsonWebKey2020"

	contentTypeDIDJSON = "application/did+json"
)

// VDR expands did:key and did:jwk identifiers into documents.
type VDR struct{}

// New returns a did:key/did:jwk resolver.
func New() *VDR {
	return &VDR{}
}

// Accept reports whether the method is handled by this resolver.
func (v *VDR) Accept(method string) bool {
	return method == didKeyMethod || method == didJWKMethod
}

// Read expands the DID into its document.
func (v *VDR) Read(_ context.Context, did string) (*api.Resolution, error) {
	parsed, err := diddoc.Parse(did)
	if err != nil {
		return nil, err
	}

	var doc *diddoc.Doc

	switch parsed.Method {
	case didKeyMethod:
		doc, err = keyDocument(parsed)
	case didJWKMethod:
		doc, err = jwkDocument(parsed)
	default:
		return nil, fmt.Errorf("method %q not supported by key resolver", parsed.Method)
	}

	if err != nil {
		return nil, err
	}

	return &api.Resolution{
		Document:    doc,
		ContentType: contentTypeDIDJSON,
	}, nil
}

func keyDocument(parsed *diddoc.DID) (*diddoc.Doc, error) {
	msid := parsed.MethodSpecificID

	pubKey, code, err := fingerprint.PubKeyFromFingerprint(msid)
	if err != nil {
		return nil, fmt.Errorf("expand did:key: %w", err)
	}

	did := parsed.String()
	keyID := fmt.Sprintf("%s#%s", did, msid)

	vm := diddoc.VerificationMethod{
		ID:         keyID,
		Controller: did,
	}

	switch code {
	case fingerprint.ED25519PubKeyMultiCodec:
		vm.Type = ed25519VerificationKey2020
		vm.PublicKeyMultibase = msid
	case fingerprint.P256PubKeyMultiCodec:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), pubKey)
		if x == nil {
			return nil, fmt.Errorf("expand did:key: invalid compressed P-256 key")
		}

		vm.Type = jsonWebKey2020
		vm.PublicKeyJwk = jwk.NewEC256(x.FillBytes(make([]byte, 32)), y.FillBytes(make([]byte, 32)))
	default:
		return nil, fmt.Errorf("expand did:key: unsupported multicodec 0x%x", code)
	}

	return &diddoc.Doc{
		Context:            []string{diddoc.ContextV1},
		ID:                 did,
		VerificationMethod: []diddoc.VerificationMethod{vm},
		Authentication:     []string{keyID},
		AssertionMethod:    []string{keyID},
	}, nil
}

func jwkDocument(parsed *diddoc.DID) (*diddoc.Doc, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(parsed.MethodSpecificID)
	if err != nil {
		return nil, fmt.Errorf("expand did:jwk: %w", err)
	}

	key, err := jwk.Parse(decoded)
	if err != nil {
		return nil, fmt.Errorf("expand did:jwk: %w", err)
	}

	did := parsed.String()
	keyID := did + "#0"

	doc := &diddoc.Doc{
		Context: []string{diddoc.ContextV1},
		ID:      did,
		VerificationMethod: []diddoc.VerificationMethod{{
			ID:           keyID,
			Type:         jsonWebKey2020,
			Controller:   did,
			PublicKeyJwk: key,
		}},
	}

	// X25519 keys are agreement-only; everything else signs.
	if key.Kty == jwk.KtyOKP && strings.EqualFold(key.Crv, "X25519") {
		doc.KeyAgreement = []string{keyID}
	} else {
		doc.Authentication = []string{keyID}
		doc.AssertionMethod = []string{keyID}
	}

	return doc, nil
}
