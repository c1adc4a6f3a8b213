/*
Copyright Flow SSI Contributors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package vdr provides the resolution registry: it routes DIDs to method
// resolvers, enriches results with registry provenance and caches them.
package vdr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluele/gcache"

	"github.com/flowssi/flownode/pkg/common/log"
	diddoc "github.com/flowssi/flownode/pkg/doc/did"
	"github.com/flowssi/flownode/pkg/vdr/api"
	"github.com/flowssi/flownode/pkg/vdr/peer"
	"github.com/flowssi/flownode/pkg/vdr/web"
)

var logger = log.New("flownode/vdr")

const (
	defaultCacheSize = 256

	peerDIDPrefix = "did:peer:"
)

// Suggested cache TTLs per method, in seconds. Methods absent from the table
// use the default; deterministic methods cache forever (no TTL).
const (
	webCacheTTLSeconds     = 3600
	ionCacheTTLSeconds     = 300
	ethrCacheTTLSeconds    = 600
	defaultCacheTTLSeconds = 1800
)

// Registry resolves DIDs by dispatching to its configured method resolvers.
type Registry struct {
	resolvers []api.Resolver
	cache     gcache.Cache
}

// Option configures the registry.
type Option func(*Registry)

// WithResolver appends a method resolver. Resolvers are consulted in
// registration order; the first to accept a method wins.
func WithResolver(resolver api.Resolver) Option {
	return func(r *Registry) {
		r.resolvers = append(r.resolvers, resolver)
	}
}

// New builds a registry. Routing is first-accept over the registered
// resolvers; results are cached per DID with method-dependent TTLs.
func New(opts ...Option) *Registry {
	r := &Registry{
		cache: gcache.New(defaultCacheSize).LRU().Build(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

type resolveOpts struct {
	timeout time.Duration
	noCache bool
}

// ResolveOption configures a single resolution call.
type ResolveOption func(*resolveOpts)

// WithTimeout races the whole resolve-and-enrich operation against the given
// deadline. Exceeding it yields a networkError result.
func WithTimeout(timeout time.Duration) ResolveOption {
	return func(o *resolveOpts) {
		o.timeout = timeout
	}
}

// WithNoCache bypasses the cache lookup for this call. The fresh result is
// still stored for subsequent callers.
func WithNoCache() ResolveOption {
	return func(o *resolveOpts) {
		o.noCache = true
	}
}

// Resolve resolves a DID. It never panics and always returns a result; all
// failures are reported through the resolution metadata error code.
func (r *Registry) Resolve(ctx context.Context, did string, opts ...ResolveOption) *api.ResolutionResult {
	options := &resolveOpts{}

	for _, opt := range opts {
		opt(options)
	}

	start := time.Now()

	// did:peer never touches the network: no timeout race, no cache.
	if strings.HasPrefix(did, peerDIDPrefix) {
		return r.resolvePeer(ctx, did, start)
	}

	parsed, err := diddoc.Parse(did)
	if err != nil {
		return failure(api.CodeInvalidDID, err.Error(), start)
	}

	if !options.noCache {
		if cached, ok := r.fromCache(did); ok {
			cached.ResolutionMetadata.FromCache = true
			cached.ResolutionMetadata.Duration = time.Since(start)

			return cached
		}
	}

	resolver := r.resolverFor(parsed.Method)
	if resolver == nil {
		return failure(api.CodeMethodNotSupported, parsed.Method, start)
	}

	result := r.resolveWithTimeout(ctx, resolver, parsed, options.timeout, start)

	if result.IsSuccess() {
		r.toCache(did, result)
	}

	return result
}

func (r *Registry) resolverFor(method string) api.Resolver {
	for _, resolver := range r.resolvers {
		if resolver.Accept(method) {
			return resolver
		}
	}

	return nil
}

func (r *Registry) resolveWithTimeout(ctx context.Context, resolver api.Resolver, parsed *diddoc.DID,
	timeout time.Duration, start time.Time) *api.ResolutionResult {
	if timeout <= 0 {
		return r.resolveAndEnrich(ctx, resolver, parsed, start)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *api.ResolutionResult, 1)

	go func() {
		done <- r.resolveAndEnrich(ctx, resolver, parsed, start)
	}()

	select {
	case result := <-done:
		return result
	case <-ctx.Done():
		// The in-flight resolution is abandoned; no partial result.
		return failure(api.CodeNetworkError, "Timeout", start)
	}
}

func (r *Registry) resolveAndEnrich(ctx context.Context, resolver api.Resolver, parsed *diddoc.DID,
	start time.Time) *api.ResolutionResult {
	did := parsed.String()

	resolution, err := resolver.Read(ctx, did)
	if err != nil {
		return failureFromError(err, start)
	}

	result := &api.ResolutionResult{
		Document: resolution.Document,
		ResolutionMetadata: api.ResolutionMetadata{
			ContentType:     resolution.ContentType,
			Method:          parsed.Method,
			Duration:        time.Since(start),
			Retrieved:       time.Now().UTC(),
			VDRInfo:         vdrInfoFor(parsed.Method, did),
			CacheTTLSeconds: cacheTTLFor(parsed.Method),
		},
	}

	if resolution.DocumentMetadata != nil {
		result.DocumentMetadata = *resolution.DocumentMetadata
	}

	if result.DocumentMetadata.Deactivated {
		result.Document = nil
		result.ResolutionMetadata.Error = api.NewResolutionError(api.CodeDeactivated, did)
	}

	return result
}

func (r *Registry) resolvePeer(ctx context.Context, did string, start time.Time) *api.ResolutionResult {
	resolver := r.resolverFor(peer.DIDMethod)
	if resolver == nil {
		return failure(api.CodeMethodNotSupported, peer.DIDMethod, start)
	}

	resolution, err := resolver.Read(ctx, did)
	if err != nil {
		// All did:peer failures are parse failures: there is no registry
		// to be unreachable or to report absence.
		return failure(api.CodeInvalidDID, err.Error(), start)
	}

	return &api.ResolutionResult{
		Document: resolution.Document,
		ResolutionMetadata: api.ResolutionMetadata{
			ContentType: resolution.ContentType,
			Method:      peer.DIDMethod,
			Duration:    time.Since(start),
			Retrieved:   time.Now().UTC(),
			VDRInfo: &api.VDRInfo{
				RegistryType: api.RegistryTypePeerToPeer,
				Verified:     true,
				Proof:        &api.RegistryProof{Type: api.ProofTypeLocal},
			},
		},
	}
}

func (r *Registry) fromCache(did string) (*api.ResolutionResult, bool) {
	value, err := r.cache.Get(did)
	if err != nil {
		if !errors.Is(err, gcache.KeyNotFoundError) {
			logger.Warnf("resolution cache lookup for %s: %v", did, err)
		}

		return nil, false
	}

	cached, ok := value.(api.ResolutionResult)
	if !ok {
		return nil, false
	}

	// Copy so per-call metadata mutations never leak into the cache.
	return &cached, true
}

func (r *Registry) toCache(did string, result *api.ResolutionResult) {
	ttl := result.ResolutionMetadata.CacheTTLSeconds

	var err error

	if ttl == nil {
		err = r.cache.Set(did, *result)
	} else {
		err = r.cache.SetWithExpire(did, *result, time.Duration(*ttl)*time.Second)
	}

	if err != nil {
		logger.Warnf("resolution cache store for %s: %v", did, err)
	}
}

func vdrInfoFor(method, did string) *api.VDRInfo {
	switch method {
	case "key", "jwk":
		return &api.VDRInfo{
			RegistryType: api.RegistryTypeCryptographic,
			Verified:     true,
			Proof:        &api.RegistryProof{Type: api.ProofTypeCryptographic},
		}
	case "web":
		endpoint, err := web.EndpointFromDID(did)
		if err != nil {
			return &api.VDRInfo{RegistryType: api.RegistryTypeHTTPS}
		}

		return &api.VDRInfo{
			RegistryType: api.RegistryTypeHTTPS,
			Endpoint:     endpoint,
			Verified:     true,
			Proof:        &api.RegistryProof{Type: api.ProofTypeHTTPSRetrieval, URL: endpoint},
		}
	case "ion":
		return &api.VDRInfo{RegistryType: api.RegistryTypeBlockchain, Network: "ion"}
	case "ethr":
		return &api.VDRInfo{RegistryType: api.RegistryTypeBlockchain, Network: "ethereum"}
	case "pkh", "tz":
		return &api.VDRInfo{RegistryType: api.RegistryTypeBlockchain, Network: method}
	default:
		return nil
	}
}

func cacheTTLFor(method string) *int {
	var ttl int

	switch method {
	case "key", "jwk":
		return nil
	case "web":
		ttl = webCacheTTLSeconds
	case "ion":
		ttl = ionCacheTTLSeconds
	case "ethr":
		ttl = ethrCacheTTLSeconds
	default:
		ttl = defaultCacheTTLSeconds
	}

	return &ttl
}

func failure(code, message string, start time.Time) *api.ResolutionResult {
	return &api.ResolutionResult{
		ResolutionMetadata: api.ResolutionMetadata{
			Error:     api.NewResolutionError(code, message),
			Duration:  time.Since(start),
			Retrieved: time.Now().UTC(),
		},
	}
}

func failureFromError(err error, start time.Time) *api.ResolutionResult {
	var resErr *api.ResolutionError

	switch {
	case errors.As(err, &resErr):
		return failure(resErr.Code, resErr.Message, start)
	case errors.Is(err, api.ErrNotFound):
		return failure(api.CodeNotFound, err.Error(), start)
	case errors.Is(err, context.DeadlineExceeded):
		return failure(api.CodeNetworkError, "Timeout", start)
	default:
		return failure(api.CodeResolutionFailed, fmt.Sprintf("resolution failed: %v", err), start)
	}
}
