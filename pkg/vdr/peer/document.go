/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"fmt"

	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/doc/jwk"
	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

const (
	ed25519VerificationKey2020      = "Ed25519VerificationKey2020"
	x25519KeyAgreementKey2020       = "X25519KeyAgreementKey2020"
	ecdsaSecp256k1VerificationKey   = "EcdsaSecp256k1VerificationKey2019"
	jsonWebKey2020                  = "JsonWebKey2020"
	uncompressedP256CoordinatesSize = 64
)

// CreateDIDDocument synthesizes a DID Document from a parsed did:peer.
func CreateDIDDocument(parsed *ParsedDID) (*diddoc.Doc, error) {
	doc := &diddoc.Doc{
		Context: []string{diddoc.ContextV1},
		ID:      parsed.DID,
	}

	for i, method := range parsed.Methods {
		keyID := fmt.Sprintf("%s#key-%d", parsed.DID, i+1)

		vm, err := verificationMethod(keyID, parsed.DID, method)
		if err != nil {
			return nil, err
		}

		doc.VerificationMethod = append(doc.VerificationMethod, *vm)

		switch method.Purpose {
		case PurposeKeyAgreement:
			doc.KeyAgreement = append(doc.KeyAgreement, keyID)
		case PurposeVerification, PurposeAuthentication:
			doc.Authentication = append(doc.Authentication, keyID)
			doc.AssertionMethod = append(doc.AssertionMethod, keyID)
		}
	}

	for i, svc := range parsed.Services {
		doc.Service = append(doc.Service, diddoc.Service{
			ID:   fmt.Sprintf("%s#service-%d", parsed.DID, i+1),
			Type: svc.Type,
			ServiceEndpoint: diddoc.Endpoint{
				URI:         svc.ServiceEndpoint,
				RoutingKeys: svc.RoutingKeys,
				Accept:      svc.Accept,
			},
		})
	}

	return doc, nil
}

func verificationMethod(keyID, controller string, method Method) (*diddoc.VerificationMethod, error) {
	vm := &diddoc.VerificationMethod{
		ID:         keyID,
		Controller: controller,
	}

	switch method.KeyType {
	case fingerprint.Ed25519:
		vm.Type = ed25519VerificationKey2020
	case fingerprint.X25519:
		vm.Type = x25519KeyAgreementKey2020
	case fingerprint.Secp256k1:
		vm.Type = ecdsaSecp256k1VerificationKey
	case fingerprint.P256:
		if len(method.PublicKey) != uncompressedP256CoordinatesSize {
			return nil, fmt.Errorf("%w: P-256 key must be %d bytes, got %d",
				ErrInvalidEncoding, uncompressedP256CoordinatesSize, len(method.PublicKey))
		}

		vm.Type = jsonWebKey2020
		vm.PublicKeyJwk = jwk.NewEC256(method.PublicKey[:32], method.PublicKey[32:])

		return vm, nil
	default:
		return nil, fmt.Errorf("%w: key type %d", fingerprint.ErrUnsupportedKeyType, method.KeyType)
	}

	encoded, err := fingerprint.Encode(method.KeyType, method.PublicKey)
	if err != nil {
		return nil, err
	}

	vm.PublicKeyMultibase = encoded

	return vm, nil
}
