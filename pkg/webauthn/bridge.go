/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webauthn manages passkey ceremonies and derives portable DIDs from
// registered credentials.
package webauthn

import (
	"crypto/elliptic"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	wan "github.com/go-webauthn/webauthn/webauthn"

	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/doc/jwk"
	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

// ErrUnsupportedAlgorithm is returned for COSE keys that are neither ES256
// nor EdDSA.
var ErrUnsupportedAlgorithm = errors.New("unsupported COSE algorithm")

// CoseToJWK converts a credential's COSE public key to a JWK. Exactly two
// algorithms are supported: ES256 (P-256 EC key) and EdDSA (Ed25519 OKP key).
func CoseToJWK(coseKey []byte) (*jwk.JWK, error) {
	parsed, err := webauthncose.ParsePublicKey(coseKey)
	if err != nil {
		return nil, fmt.Errorf("parse COSE key: %w", err)
	}

	switch key := parsed.(type) {
	case webauthncose.EC2PublicKeyData:
		if key.Algorithm != int64(webauthncose.AlgES256) {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, key.Algorithm)
		}

		if len(key.XCoord) == 0 {
			return nil, errors.New("missing x coordinate")
		}

		if len(key.YCoord) == 0 {
			return nil, errors.New("missing y coordinate")
		}

		return jwk.NewEC256(key.XCoord, key.YCoord), nil
	case webauthncose.OKPPublicKeyData:
		if key.Algorithm != int64(webauthncose.AlgEdDSA) {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedAlgorithm, key.Algorithm)
		}

		if len(key.XCoord) == 0 {
			return nil, errors.New("missing public key bytes")
		}

		return jwk.NewEd25519(key.XCoord), nil
	default:
		return nil, fmt.Errorf("%w: key type %T", ErrUnsupportedAlgorithm, parsed)
	}
}

// DIDKeyFromJWK derives the did:key identifier for a passkey's JWK. The
// derivation is deterministic: the same key always yields the same DID.
func DIDKeyFromJWK(key *jwk.JWK) (string, error) {
	switch {
	case key.Kty == jwk.KtyEC && key.Crv == jwk.CrvP256:
		xb, err := key.XBytes()
		if err != nil {
			return "", fmt.Errorf("decode x coordinate: %w", err)
		}

		yb, err := key.YBytes()
		if err != nil {
			return "", fmt.Errorf("decode y coordinate: %w", err)
		}

		compressed := elliptic.MarshalCompressed(elliptic.P256(),
			new(big.Int).SetBytes(xb), new(big.Int).SetBytes(yb))

		did, _ := fingerprint.CreateDIDKeyByCode(fingerprint.P256PubKeyMultiCodec, compressed)

		return did, nil
	case key.Kty == jwk.KtyOKP && key.Crv == jwk.CrvEd25519:
		raw, err := key.XBytes()
		if err != nil {
			return "", fmt.Errorf("decode public key: %w", err)
		}

		did, _ := fingerprint.CreateDIDKeyByCode(fingerprint.ED25519PubKeyMultiCodec, raw)

		return did, nil
	default:
		return "", fmt.Errorf("%w: %s/%s", ErrUnsupportedAlgorithm, key.Kty, key.Crv)
	}
}

// DIDKeyFromCredential derives the did:key identifier and JWK for a
// registered credential.
func DIDKeyFromCredential(credential *wan.Credential) (string, *jwk.JWK, error) {
	key, err := CoseToJWK(credential.PublicKey)
	if err != nil {
		return "", nil, err
	}

	did, err := DIDKeyFromJWK(key)
	if err != nil {
		return "", nil, err
	}

	return did, key, nil
}

// CreateDIDDocument builds the DID document for a passkey-derived DID: one
// JsonWebKey2020 verification method referenced by both authentication and
// assertionMethod.
func CreateDIDDocument(did string, key *jwk.JWK) *diddoc.Doc {
	keyID := did + "#key-1"

	return &diddoc.Doc{
		Context: []string{diddoc.ContextV1},
		ID:      did,
		VerificationMethod: []diddoc.VerificationMethod{{
			ID:           keyID,
			Type:         "JsonWebKey2020",
			Controller:   did,
			PublicKeyJwk: key,
		}},
		Authentication:  []string{keyID},
		AssertionMethod: []string{keyID},
	}
}
