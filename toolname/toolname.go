// Package toolname maps canonical tool identifiers to provider-visible tool
// names and back. Two independent techniques are combined here:
//
//   - Collision-suffix mapping normalizes each canonical name for a given
//     provider and assigns every canonical name a unique provider-visible
//     name, appending "__1", "__2", ... when two canonical names normalize
//     to the same string.
//   - Character sanitization (used by providers with stricter name
//     alphabets, such as Bedrock) performs a one-way replacement of
//     disallowed runes, with a content hash suffix when the sanitized name
//     would exceed the provider's length limit.
//
// A Mapping's provider-visible output can be passed through a provider's
// additional Sanitize layer before becoming the wire name; the reverse map
// is composed transparently so callers only ever look up canonical names.
package toolname

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Mapping is a deterministic, collision-free bijection between canonical
// tool identifiers and provider-visible tool names.
type Mapping struct {
	toProvider    map[string]string
	toCanon       map[string]string
	order         []string
	providerTools map[string]string
}

// NewMapping builds a Mapping for the given canonical tool names, in order.
// normalize is applied to each canonical name to compute its candidate
// provider-visible name (for example, lower-casing or replacing "." with
// "_"); when nil, the canonical name is used unchanged.
//
// reserved is a map of provider-native tool id -> request-visible name
// (message.ReservedToolNames builds this from a Request's ProviderTools).
// Its values form a reserved set no canonical name's provider-visible name
// may take, so a caller's own function tool can never collide with a
// provider-native tool of the same name; reserved may be nil when the
// request declares no provider-native tools.
//
// The full set of canonical names is also globally reserved against each
// other, so assignment is independent of iteration order: when two distinct
// canonical names normalize to the same candidate, or a generated "__1",
// "__2", ... candidate would equal a different canonical name's own
// original name, the later name keeps incrementing its suffix until it
// lands on a name that is neither reserved, nor already assigned, nor equal
// to a different canonical name.
//
// names must be non-empty canonical identifiers; NewMapping returns an error
// if any name is empty.
func NewMapping(names []string, normalize func(string) string, reserved map[string]string) (*Mapping, error) {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	reservedNames := make(map[string]bool, len(reserved))
	for _, n := range reserved {
		reservedNames[n] = true
	}
	original := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			original[n] = true
		}
	}

	m := &Mapping{
		toProvider:    make(map[string]string, len(names)),
		toCanon:       make(map[string]string, len(names)),
		order:         make([]string, 0, len(names)),
		providerTools: make(map[string]string, len(reserved)),
	}
	for id, n := range reserved {
		m.providerTools[id] = n
	}

	collides := func(candidate, name string) bool {
		if reservedNames[candidate] {
			return true
		}
		if _, taken := m.toCanon[candidate]; taken {
			return true
		}
		return original[candidate] && candidate != name
	}

	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("toolname: tool name must not be empty")
		}
		if _, ok := m.toProvider[name]; ok {
			// Exact duplicate canonical name; mapping is idempotent.
			continue
		}
		candidate := normalize(name)
		provider := candidate
		if collides(provider, name) {
			for n := 1; ; n++ {
				attempt := fmt.Sprintf("%s__%d", candidate, n)
				if !collides(attempt, name) {
					provider = attempt
					break
				}
			}
		}
		m.toProvider[name] = provider
		m.toCanon[provider] = name
		m.order = append(m.order, name)
	}
	return m, nil
}

// ProviderToolName returns the reserved request-visible name for a
// provider-native tool id, as supplied to NewMapping's reserved parameter.
func (m *Mapping) ProviderToolName(id string) (string, bool) {
	v, ok := m.providerTools[id]
	return v, ok
}

// ToProvider returns the provider-visible name for a canonical tool name, or
// ("", false) if name was not part of the mapping.
func (m *Mapping) ToProvider(name string) (string, bool) {
	v, ok := m.toProvider[name]
	return v, ok
}

// ToCanonical returns the canonical tool name for a provider-visible name,
// or ("", false) if providerName was not produced by this mapping.
func (m *Mapping) ToCanonical(providerName string) (string, bool) {
	v, ok := m.toCanon[providerName]
	return v, ok
}

// Names returns the canonical tool names in the order they were first seen.
func (m *Mapping) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Sanitize maps an arbitrary provider-visible name to one that satisfies a
// stricter provider alphabet ([a-zA-Z0-9_-], maxLen bytes), exactly as
// Bedrock's Converse tool configuration requires. Disallowed runes are
// replaced with '_'. When the sanitized name would exceed maxLen, it is
// truncated and a stable hash suffix of the original input is appended to
// preserve uniqueness across inputs that sanitize and truncate to the same
// prefix.
func Sanitize(in string, maxLen int) string {
	if in == "" {
		return ""
	}
	const hashLen = 8

	out := make([]rune, 0, len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r)
		case r >= '0' && r <= '9':
			out = append(out, r)
		case r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	sanitized := string(out)

	if maxLen <= 0 || len(sanitized) <= maxLen {
		return sanitized
	}

	sum := sha256.Sum256([]byte(in))
	suffix := hex.EncodeToString(sum[:])[:hashLen]

	prefixLen := maxLen - (1 + hashLen)
	if prefixLen < 1 {
		prefixLen = 1
	}
	if prefixLen > len(sanitized) {
		prefixLen = len(sanitized)
	}
	return sanitized[:prefixLen] + "_" + suffix
}

// IsSafe reports whether name satisfies the [a-zA-Z0-9_-]{1,maxLen} alphabet
// that Sanitize produces, without performing any transformation. It is used
// as a fast-path check to skip sanitization allocation.
func IsSafe(name string, maxLen int) bool {
	if name == "" || (maxLen > 0 && len(name) > maxLen) {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
