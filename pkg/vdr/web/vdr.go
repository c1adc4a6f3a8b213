/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package web resolves did:web by fetching the DID document over HTTPS from
// the location derived from the method-specific id.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flowssi/flownode/pkg/common/log"
	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/vdr/api"
)

var logger = log.New("flownode/vdr/web")

// DIDMethod is the method name handled by this package.
const DIDMethod = "web"

const (
	didPrefix          = "did:web:"
	wellKnownDIDJSON   = ".well-known/did.json"
	contentTypeDIDJSON = "application/did+json"

	defaultTimeout = 10 * time.Second
)

// EndpointFromDID converts a did:web identifier to the HTTPS URL of its DID
// document. The first method-specific segment is the percent-encoded
// host[:port]; the remaining colon-separated segments are path components.
func EndpointFromDID(did string) (string, error) {
	if !strings.HasPrefix(did, didPrefix) {
		return "", fmt.Errorf("not a did:web: %q", did)
	}

	segments := strings.Split(did[len(didPrefix):], ":")

	host, err := url.PathUnescape(segments[0])
	if err != nil {
		return "", fmt.Errorf("decode did:web host: %w", err)
	}

	if host == "" || strings.ContainsAny(host, "/@") {
		return "", fmt.Errorf("invalid did:web host %q", host)
	}

	path := make([]string, 0, len(segments)-1)

	for _, segment := range segments[1:] {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			return "", fmt.Errorf("decode did:web path segment: %w", err)
		}

		if decoded == "" || decoded == "." || decoded == ".." {
			return "", fmt.Errorf("invalid did:web path segment %q", decoded)
		}

		path = append(path, decoded)
	}

	if len(path) == 0 {
		return fmt.Sprintf("https://%s/%s", host, wellKnownDIDJSON), nil
	}

	return fmt.Sprintf("https://%s/%s/did.json", host, strings.Join(path, "/")), nil
}

// VDR resolves did:web documents over HTTPS.
type VDR struct {
	client *http.Client
}

// Option configures the did:web resolver.
type Option func(*VDR)

// WithHTTPClient overrides the HTTP client used to fetch documents.
func WithHTTPClient(client *http.Client) Option {
	return func(v *VDR) {
		v.client = client
	}
}

// New returns a did:web resolver.
func New(opts ...Option) *VDR {
	v := &VDR{client: &http.Client{Timeout: defaultTimeout}}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Accept reports whether the method is handled by this resolver.
func (v *VDR) Accept(method string) bool {
	return method == DIDMethod
}

// Read fetches and parses the DID document for a did:web.
func (v *VDR) Read(ctx context.Context, did string) (*api.Resolution, error) {
	endpoint, err := EndpointFromDID(did)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build did:web request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch did:web document: %w", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			logger.Warnf("failed to close did:web response body: %v", errClose)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch did:web document from %s: %w", endpoint, api.ErrNotFound)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch did:web document from %s: status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read did:web response: %w", err)
	}

	doc, err := diddoc.ParseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse did:web document: %w", err)
	}

	if doc.ID != did {
		return nil, errors.New("did:web document id does not match the requested DID")
	}

	return &api.Resolution{
		Document:    doc,
		ContentType: contentTypeDIDJSON,
	}, nil
}
