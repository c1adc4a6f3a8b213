/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package peer

import (
	"context"
	"fmt"

	"github.com/flowssi/flownode/pkg/vdr/api"
)

// VDR resolves did:peer locally, with no network access.
type VDR struct{}

// New returns a did:peer resolver.
func New() *VDR {
	return &VDR{}
}

// Accept reports whether the method is handled by this resolver.
func (v *VDR) Accept(method string) bool {
	return method == DIDMethod
}

// Read parses the did:peer and synthesizes its document.
func (v *VDR) Read(_ context.Context, did string) (*api.Resolution, error) {
	parsed, err := Parse(did)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", DIDMethod, err)
	}

	doc, err := CreateDIDDocument(parsed)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", DIDMethod, err)
	}

	return &api.Resolution{
		Document:    doc,
		ContentType: "application/did+json",
	}, nil
}
