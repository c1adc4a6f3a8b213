/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package peer implements the did:peer method: parsing, generation and local
// document synthesis for numbering algorithms 0 and 2.
package peer

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flowssi/flownode/pkg/common/log"
	"github.com/flowssi/flownode/pkg/vdr/fingerprint"
)

var logger = log.New("flownode/vdr/peer")

// DIDMethod is the method name handled by this package.
const DIDMethod = "peer"

const didPrefix = "did:peer:"

// Parse errors.
var (
	// ErrInvalidFormat is returned when the DID is not a did:peer or has no
	// method-specific content.
	ErrInvalidFormat = errors.New("invalid did:peer format")
	// ErrUnsupportedNumalgo is returned for numbering algorithms other than
	// 0 and 2.
	ErrUnsupportedNumalgo = errors.New("unsupported numalgo")
	// ErrInvalidEncoding is returned when key material cannot be decoded.
	ErrInvalidEncoding = errors.New("invalid key encoding")
)

// Purpose tags a parsed verification method with its intended relationship.
type Purpose int

const (
	// PurposeVerification keys populate authentication and assertionMethod.
	PurposeVerification Purpose = iota
	// PurposeKeyAgreement keys populate keyAgreement only.
	PurposeKeyAgreement
	// PurposeAuthentication keys populate authentication and assertionMethod.
	PurposeAuthentication
)

// Method is one verification method parsed out of a did:peer.
type Method struct {
	KeyType   fingerprint.KeyType
	Purpose   Purpose
	PublicKey []byte
}

// ServiceSpec is the decoded form of a numalgo-2 service segment.
type ServiceSpec struct {
	Type            string   `json:"t"`
	ServiceEndpoint string   `json:"s"`
	RoutingKeys     []string `json:"r"`
	Accept          []string `json:"a"`
}

// ParsedDID is the transient result of parsing a did:peer, consumed by
// document synthesis.
type ParsedDID struct {
	DID      string
	Numalgo  int
	Methods  []Method
	Services []ServiceSpec
}

// Parse decodes a did:peer string into its verification methods and services.
func Parse(did string) (*ParsedDID, error) {
	if !strings.HasPrefix(did, didPrefix) {
		return nil, fmt.Errorf("%w: missing %q prefix", ErrInvalidFormat, didPrefix)
	}

	methodSpecificID := did[len(didPrefix):]
	if methodSpecificID == "" {
		return nil, fmt.Errorf("%w: empty method-specific id", ErrInvalidFormat)
	}

	numalgo := methodSpecificID[0]
	content := methodSpecificID[1:]

	switch numalgo {
	case '0':
		return parseNumalgo0(did, content)
	case '2':
		return parseNumalgo2(did, content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNumalgo, string(numalgo))
	}
}

func parseNumalgo0(did, content string) (*ParsedDID, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: empty inception key", ErrInvalidFormat)
	}

	keyType, raw, err := fingerprint.Decode(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEncoding, err)
	}

	if len(raw) < 2 {
		return nil, fmt.Errorf("%w: key material too short", ErrInvalidEncoding)
	}

	return &ParsedDID{
		DID:     did,
		Numalgo: 0,
		Methods: []Method{{KeyType: keyType, Purpose: PurposeVerification, PublicKey: raw}},
	}, nil
}

func parseNumalgo2(did, content string) (*ParsedDID, error) {
	parsed := &ParsedDID{DID: did, Numalgo: 2}

	for _, part := range strings.Split(content, ".") {
		if part == "" {
			continue
		}

		transform := part[0]
		value := part[1:]

		switch transform {
		case 'E', 'V', 'A':
			keyType, raw, err := fingerprint.Decode(value)
			if err != nil {
				return nil, fmt.Errorf("%w: segment %q: %s", ErrInvalidEncoding, string(transform), err)
			}

			parsed.Methods = append(parsed.Methods, Method{
				KeyType:   keyType,
				Purpose:   purposeForTransform(transform),
				PublicKey: raw,
			})
		case 'S':
			svc, err := parseService(value)
			if err != nil {
				return nil, err
			}

			parsed.Services = append(parsed.Services, *svc)
		default:
			logger.Warnf("skipping unrecognized did:peer transform code %q", string(transform))
		}
	}

	return parsed, nil
}

func purposeForTransform(transform byte) Purpose {
	switch transform {
	case 'V':
		return PurposeKeyAgreement
	case 'A':
		return PurposeAuthentication
	default:
		return PurposeVerification
	}
}

func parseService(value string) (*ServiceSpec, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode service segment: %w", err)
	}

	svc := &ServiceSpec{}
	if err := json.Unmarshal(decoded, svc); err != nil {
		return nil, fmt.Errorf("unmarshal service segment: %w", err)
	}

	if svc.RoutingKeys == nil {
		svc.RoutingKeys = []string{}
	}

	if svc.Accept == nil {
		svc.Accept = []string{}
	}

	return svc, nil
}
