/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package api contains the contracts shared by DID method implementations and
// the resolution registry.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	diddoc "github.com/flowssi/flownode/pkg/doc/did"
)

// ErrNotFound is returned by method resolvers when no document exists for
// the DID.
var ErrNotFound = errors.New("DID does not exist")

// Resolver resolves DIDs for the methods it accepts.
type Resolver interface {
	// Accept reports whether the resolver handles the given DID method.
	Accept(method string) bool
	// Read resolves a DID to a document. It returns ErrNotFound (possibly
	// wrapped) when the DID does not exist.
	Read(ctx context.Context, did string) (*Resolution, error)
}

// Resolution is a method resolver's raw output, before registry enrichment.
type Resolution struct {
	Document         *diddoc.Doc
	DocumentMetadata *DocumentMetadata
	ContentType      string
}

// Error codes from the W3C DID resolution registry.
const (
	CodeInvalidDID                 = "invalidDid"
	CodeNotFound                   = "notFound"
	CodeMethodNotSupported         = "methodNotSupported"
	CodeRepresentationNotSupported = "representationNotSupported"
	CodeInvalidDIDDocument         = "invalidDidDocument"
	CodeDeactivated                = "deactivated"
	CodeNetworkError               = "networkError"
	CodeSecurityError              = "securityError"
	CodeResolutionFailed           = "resolutionFailed"
	CodeInternalError              = "internalError"
)

// ResolutionError carries a W3C resolution error code and a human-readable
// message.
type ResolutionError struct {
	Code    string `json:"error"`
	Message string `json:"errorMessage,omitempty"`
}

func (e *ResolutionError) Error() string {
	if e.Message == "" {
		return e.Code
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewResolutionError builds a ResolutionError from a code and message.
func NewResolutionError(code, message string) *ResolutionError {
	return &ResolutionError{Code: code, Message: message}
}

// Registry types for VDR provenance.
const (
	RegistryTypeCryptographic = "cryptographic"
	RegistryTypeHTTPS         = "https"
	RegistryTypeBlockchain    = "blockchain"
	RegistryTypePeerToPeer    = "peer-to-peer"
)

// Proof types for VDR provenance.
const (
	ProofTypeCryptographic    = "cryptographic-self-certification"
	ProofTypeHTTPSRetrieval   = "https-retrieval"
	ProofTypeBlockchainAnchor = "blockchain-anchor"
	ProofTypeContentAddressed = "content-addressed"
	ProofTypeLocal            = "local"
)

// RegistryProof describes how a document's provenance can be checked. Type
// selects the variant; the remaining fields apply per variant.
type RegistryProof struct {
	Type string `json:"type"`
	// URL of the retrieved resource, for https-retrieval proofs.
	URL string `json:"url,omitempty"`
	// TransactionID anchoring the document, for blockchain-anchor proofs.
	TransactionID string `json:"transactionId,omitempty"`
	// CID of the document, for content-addressed proofs.
	CID string `json:"cid,omitempty"`
}

// VDRInfo records which kind of verifiable data registry produced a document
// and whether its provenance was verified. Purely descriptive.
type VDRInfo struct {
	RegistryType string         `json:"registryType"`
	Endpoint     string         `json:"endpoint,omitempty"`
	Network      string         `json:"network,omitempty"`
	Verified     bool           `json:"verified"`
	Proof        *RegistryProof `json:"proof,omitempty"`
}

// ResolutionMetadata describes a single resolution attempt. A fresh value is
// built for every call.
type ResolutionMetadata struct {
	ContentType     string           `json:"contentType,omitempty"`
	Error           *ResolutionError `json:"error,omitempty"`
	VDRInfo         *VDRInfo         `json:"vdrInfo,omitempty"`
	Duration        time.Duration    `json:"duration"`
	FromCache       bool             `json:"fromCache"`
	CacheTTLSeconds *int             `json:"cacheTtlSeconds,omitempty"`
	Retrieved       time.Time        `json:"retrieved"`
	Method          string           `json:"method,omitempty"`
}

// DocumentMetadata carries method-specific metadata about the resolved
// document itself.
type DocumentMetadata struct {
	Created      *time.Time `json:"created,omitempty"`
	Updated      *time.Time `json:"updated,omitempty"`
	Deactivated  bool       `json:"deactivated,omitempty"`
	VersionID    string     `json:"versionId,omitempty"`
	CanonicalID  string     `json:"canonicalId,omitempty"`
	EquivalentID []string   `json:"equivalentId,omitempty"`
}

// ResolutionResult is the complete output of a resolution: the document (nil
// on failure) plus resolution and document metadata.
type ResolutionResult struct {
	Document           *diddoc.Doc        `json:"didDocument,omitempty"`
	ResolutionMetadata ResolutionMetadata `json:"didResolutionMetadata"`
	DocumentMetadata   DocumentMetadata   `json:"didDocumentMetadata"`
}

// IsSuccess reports whether the resolution produced a document without an
// error code.
func (r *ResolutionResult) IsSuccess() bool {
	return r.Document != nil && r.ResolutionMetadata.Error == nil
}
