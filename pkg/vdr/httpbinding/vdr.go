/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package httpbinding delegates resolution to an external universal resolver
// exposing the HTTP(S) binding of the DID resolution contract.
package httpbinding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flowssi/flownode/pkg/common/log"
	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/vdr/api"
)

var logger = log.New("flownode/vdr/httpbinding")

const defaultTimeout = 30 * time.Second

// Accept is the function the registry consults to decide whether a method is
// routed to this binding.
type Accept func(method string) bool

// VDR forwards resolution requests to a universal resolver endpoint.
type VDR struct {
	endpointURL *url.URL
	client      *http.Client
	accept      Accept
}

// Option configures the HTTP binding.
type Option func(*VDR)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(v *VDR) {
		v.client = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(v *VDR) {
		v.client.Timeout = timeout
	}
}

// WithAccept replaces the method acceptance function.
func WithAccept(accept Accept) Option {
	return func(v *VDR) {
		v.accept = accept
	}
}

// New creates a universal resolver binding against endpointURL, e.g.
// "https://resolver.example.com/1.0/identifiers".
func New(endpointURL string, opts ...Option) (*VDR, error) {
	parsed, err := url.Parse(endpointURL)
	if err != nil {
		return nil, fmt.Errorf("invalid resolver endpoint %q: %w", endpointURL, err)
	}

	v := &VDR{
		endpointURL: parsed,
		client:      &http.Client{Timeout: defaultTimeout},
		accept:      func(string) bool { return true },
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Accept reports whether the method is routed to the external resolver.
func (v *VDR) Accept(method string) bool {
	return v.accept(method)
}

// resolutionEnvelope is the W3C HTTP(S) binding response shape.
type resolutionEnvelope struct {
	Document           json.RawMessage `json:"didDocument"`
	ResolutionMetadata struct {
		ContentType string `json:"contentType"`
		Error       string `json:"error"`
	} `json:"didResolutionMetadata"`
	DocumentMetadata *api.DocumentMetadata `json:"didDocumentMetadata"`
}

// Read queries the external resolver for the DID.
func (v *VDR) Read(ctx context.Context, did string) (*api.Resolution, error) {
	reqURL := *v.endpointURL
	reqURL.Path = reqURL.Path + "/" + did

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build resolver request: %w", err)
	}

	req.Header.Set("Accept", "application/ld+json;profile=\"https://w3id.org/did-resolution\"")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query resolver: %w", err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			logger.Warnf("failed to close resolver response body: %v", errClose)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("resolver returned 404 for %s: %w", did, api.ErrNotFound)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read resolver response: %w", err)
	}

	var envelope resolutionEnvelope

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal resolver response: %w", err)
	}

	if envelope.ResolutionMetadata.Error != "" {
		if envelope.ResolutionMetadata.Error == api.CodeNotFound {
			return nil, fmt.Errorf("resolver reported %s for %s: %w",
				envelope.ResolutionMetadata.Error, did, api.ErrNotFound)
		}

		return nil, api.NewResolutionError(envelope.ResolutionMetadata.Error,
			fmt.Sprintf("external resolver failed for %s", did))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver returned status %d for %s", resp.StatusCode, did)
	}

	if len(envelope.Document) == 0 {
		return nil, fmt.Errorf("resolver returned no document for %s: %w", did, api.ErrNotFound)
	}

	doc, err := diddoc.ParseDocument(envelope.Document)
	if err != nil {
		return nil, fmt.Errorf("parse resolver document: %w", err)
	}

	contentType := envelope.ResolutionMetadata.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	return &api.Resolution{
		Document:         doc,
		DocumentMetadata: envelope.DocumentMetadata,
		ContentType:      contentType,
	}, nil
}
