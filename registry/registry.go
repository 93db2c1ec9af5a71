// Package registry resolves provider identifiers and "provider:model"
// handles into typed capability.Client instances. It keeps a process-wide
// table of registered providers guarded by an explicit register/unregister/
// clear lifecycle, and answers capability-set queries (has/findAll/findAny/
// best) without ever type-switching on a concrete provider struct.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/llmerr"
)

// Capability names a feature a registered provider may support. The set for
// a provider is derived once, at registration time, by type-asserting the
// capability.Client against the richer capability interfaces — callers never
// need to know the concrete adapter type.
type Capability string

const (
	// CapChat is present on every registered provider; capability.Client is
	// the minimum contract the registry accepts.
	CapChat Capability = "chat"

	// CapStreaming is present when the provider also implements
	// capability.StreamingClient.
	CapStreaming Capability = "streaming"

	// CapCaching is present when the provider also implements
	// capability.CachingClient.
	CapCaching Capability = "caching"

	// CapEmbedding is present when the provider also implements
	// capability.EmbeddingCapability.
	CapEmbedding Capability = "embedding"

	// CapImageGeneration is present when the provider also implements
	// capability.ImageGenerationCapability.
	CapImageGeneration Capability = "image_generation"

	// CapAudio is present when the provider also implements
	// capability.AudioCapability.
	CapAudio Capability = "audio"

	// CapModelListing is present when the provider also implements
	// capability.ModelListingCapability.
	CapModelListing Capability = "model_listing"

	// CapFileManagement is present when the provider also implements
	// capability.FileManagementCapability.
	CapFileManagement Capability = "file_management"
)

type entry struct {
	client capability.Client
	caps   map[Capability]bool
	meta   map[string]any
}

func capabilitiesOf(c capability.Client) map[Capability]bool {
	caps := map[Capability]bool{CapChat: true}
	if _, ok := c.(capability.StreamingClient); ok {
		caps[CapStreaming] = true
	}
	if _, ok := c.(capability.CachingClient); ok {
		caps[CapCaching] = true
	}
	if _, ok := c.(capability.EmbeddingCapability); ok {
		caps[CapEmbedding] = true
	}
	if _, ok := c.(capability.ImageGenerationCapability); ok {
		caps[CapImageGeneration] = true
	}
	if _, ok := c.(capability.AudioCapability); ok {
		caps[CapAudio] = true
	}
	if _, ok := c.(capability.ModelListingCapability); ok {
		caps[CapModelListing] = true
	}
	if _, ok := c.(capability.FileManagementCapability); ok {
		caps[CapFileManagement] = true
	}
	return caps
}

// Registry is a process-wide table of provider instances keyed by id. The
// zero value is not usable; construct one with NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*entry
	order     []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*entry)}
}

// registerOptions controls Register's behavior on an id collision.
type registerOptions struct {
	replace bool
	meta    map[string]any
}

// RegisterOption configures a Register call.
type RegisterOption func(*registerOptions)

// WithReplace makes Register overwrite an existing registration for the
// same id instead of leaving it untouched. The default is idempotent
// registration, so multiple independent callers can register the same
// provider without coordinating.
func WithReplace(replace bool) RegisterOption {
	return func(o *registerOptions) { o.replace = replace }
}

// WithMetadata attaches free-form metadata to the registration, retrievable
// via Metadata.
func WithMetadata(meta map[string]any) RegisterOption {
	return func(o *registerOptions) { o.meta = meta }
}

// Register adds client under id. If id is already registered and
// WithReplace(true) was not given, Register is a no-op and returns nil —
// registration is idempotent by default.
func (r *Registry) Register(id string, client capability.Client, opts ...RegisterOption) error {
	if id == "" {
		return llmerr.New("registry", llmerr.KindInvalidRequest, nil).WithMessage("provider id must not be empty")
	}
	if client == nil {
		return llmerr.New(id, llmerr.KindInvalidRequest, nil).WithMessage("client must not be nil")
	}
	cfg := registerOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; exists && !cfg.replace {
		return nil
	}
	if _, exists := r.providers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = &entry{client: client, caps: capabilitiesOf(client), meta: cfg.meta}
	return nil
}

// Unregister removes id, if present.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[id]; !exists {
		return
	}
	delete(r.providers, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Clear removes every registered provider.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = make(map[string]*entry)
	r.order = nil
}

// Get returns the client registered under id.
func (r *Registry) Get(id string) (capability.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[id]
	if !ok {
		return nil, false
	}
	return e.client, true
}

// Metadata returns the free-form metadata attached at registration time.
func (r *Registry) Metadata(id string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[id]
	if !ok {
		return nil, false
	}
	return e.meta, true
}

// Has reports whether id is registered and supports cap.
func (r *Registry) Has(id string, cap Capability) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.providers[id]
	if !ok {
		return false
	}
	return e.caps[cap]
}

// FindAll returns, in registration order, the ids of providers that support
// every capability in caps.
func (r *Registry) FindAll(caps ...Capability) []string {
	return r.find(caps, true)
}

// FindAny returns, in registration order, the ids of providers that support
// at least one capability in caps. An empty caps list matches nothing.
func (r *Registry) FindAny(caps ...Capability) []string {
	return r.find(caps, false)
}

func (r *Registry) find(caps []Capability, requireAll bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, id := range r.order {
		e := r.providers[id]
		if requireAll {
			if hasAll(e.caps, caps) {
				out = append(out, id)
			}
			continue
		}
		if len(caps) > 0 && hasAny(e.caps, caps) {
			out = append(out, id)
		}
	}
	return out
}

func hasAll(have map[Capability]bool, want []Capability) bool {
	for _, c := range want {
		if !have[c] {
			return false
		}
	}
	return true
}

func hasAny(have map[Capability]bool, want []Capability) bool {
	for _, c := range want {
		if have[c] {
			return true
		}
	}
	return false
}

// Best returns the id of the registered provider supporting every
// capability in required, ranked by how many of preferred it additionally
// supports (ties broken by registration order, then id). It returns false
// when no registered provider satisfies required.
func (r *Registry) Best(required, preferred []Capability) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type candidate struct {
		id       string
		overlap  int
		position int
	}
	var candidates []candidate
	for i, id := range r.order {
		e := r.providers[id]
		if !hasAll(e.caps, required) {
			continue
		}
		overlap := 0
		for _, c := range preferred {
			if e.caps[c] {
				overlap++
			}
		}
		candidates = append(candidates, candidate{id: id, overlap: overlap, position: i})
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return candidates[i].position < candidates[j].position
	})
	return candidates[0].id, true
}

// ParseIdentifier splits a combined "providerId<sep>modelId" identifier. sep
// defaults to ":" when empty. It reports false when identifier does not
// contain sep, or when either half is empty.
func ParseIdentifier(identifier, sep string) (providerID, modelID string, ok bool) {
	if sep == "" {
		sep = ":"
	}
	idx := strings.Index(identifier, sep)
	if idx < 0 {
		return "", "", false
	}
	providerID, modelID = identifier[:idx], identifier[idx+len(sep):]
	if providerID == "" || modelID == "" {
		return "", "", false
	}
	return providerID, modelID, true
}

// Client resolves combined "providerId:modelId" identifiers against a
// Registry into a capability.Client plus the bare model id the caller
// should place on message.Config.Model.
type Client struct {
	registry *Registry
	sep      string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSeparator overrides the default ":" identifier separator.
func WithSeparator(sep string) ClientOption {
	return func(c *Client) { c.sep = sep }
}

// NewClient returns a Client resolving identifiers against r.
func NewClient(r *Registry, opts ...ClientOption) *Client {
	c := &Client{registry: r, sep: ":"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Resolve parses identifier and looks up the registered provider. It fails
// with llmerr.KindInvalidRequest when identifier is malformed or the
// provider is not registered.
func (c *Client) Resolve(identifier string) (capability.Client, string, error) {
	return resolveAs(c, identifier, func(cl capability.Client) (capability.Client, bool) { return cl, true })
}

// ResolveEmbedding resolves identifier the same way Resolve does, additionally
// requiring the provider implement capability.EmbeddingCapability. It fails
// with llmerr.KindInvalidRequest when the provider has no embedding factory.
func (c *Client) ResolveEmbedding(identifier string) (capability.EmbeddingCapability, string, error) {
	return resolveAs(c, identifier, func(cl capability.Client) (capability.EmbeddingCapability, bool) {
		ec, ok := cl.(capability.EmbeddingCapability)
		return ec, ok
	})
}

// ResolveImageGeneration resolves identifier the same way Resolve does,
// additionally requiring the provider implement
// capability.ImageGenerationCapability.
func (c *Client) ResolveImageGeneration(identifier string) (capability.ImageGenerationCapability, string, error) {
	return resolveAs(c, identifier, func(cl capability.Client) (capability.ImageGenerationCapability, bool) {
		ic, ok := cl.(capability.ImageGenerationCapability)
		return ic, ok
	})
}

// ResolveAudio resolves identifier the same way Resolve does, additionally
// requiring the provider implement capability.AudioCapability.
func (c *Client) ResolveAudio(identifier string) (capability.AudioCapability, string, error) {
	return resolveAs(c, identifier, func(cl capability.Client) (capability.AudioCapability, bool) {
		ac, ok := cl.(capability.AudioCapability)
		return ac, ok
	})
}

// resolveAs parses identifier, looks up the registered provider, and applies
// as to narrow it to the caller's requested capability interface. as returns
// ok=false when the registered provider does not implement that interface,
// which resolveAs reports as llmerr.KindInvalidRequest — the same taxon
// ParseIdentifier and an unregistered provider id use, per spec.md's
// "missing factories fail with InvalidRequest" rule.
func resolveAs[T any](c *Client, identifier string, as func(capability.Client) (T, bool)) (T, string, error) {
	var zero T
	providerID, modelID, ok := ParseIdentifier(identifier, c.sep)
	if !ok {
		return zero, "", llmerr.New("registry", llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("malformed model identifier %q, expected providerId%smodelId", identifier, c.sep))
	}
	client, ok := c.registry.Get(providerID)
	if !ok {
		return zero, "", llmerr.New(providerID, llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("provider %q is not registered", providerID))
	}
	typed, ok := as(client)
	if !ok {
		return zero, "", llmerr.New(providerID, llmerr.KindInvalidRequest, nil).
			WithMessage(fmt.Sprintf("provider %q does not implement the requested capability", providerID))
	}
	return typed, modelID, nil
}
