package message

import "strings"

// ProviderTool references a tool implemented natively inside a provider's
// own service (OpenAI's web_search_preview, Anthropic's
// web_search_20250305, Google's code_execution, ...) rather than one the
// caller implements and registers as a Tool. ID is a stable identifier of
// the form "provider.nativeName"; Options carries provider-specific tuning
// fields (Anthropic's max_uses, Google's allowed domains) passed through to
// the adapter verbatim.
type ProviderTool struct {
	// ID is the stable provider-native tool identifier, e.g.
	// "openai.web_search_preview". See ProviderToolNames for the full set
	// this module recognizes.
	ID string

	// Options carries provider-specific tuning fields for the tool.
	Options map[string]any
}

// ProviderToolNames maps every provider-native tool id this module
// recognizes to the short request-visible name its wire protocol expects.
var ProviderToolNames = map[string]string{
	"openai.web_search_preview":     "web_search_preview",
	"openai.file_search":            "file_search",
	"openai.computer_use_preview":   "computer_use_preview",
	"openai.image_generation":       "image_generation",
	"openai.code_interpreter":       "code_interpreter",
	"anthropic.web_search_20250305": "web_search",
	"anthropic.web_fetch_20250910":  "web_fetch",
	"google.google_search":          "google_search",
	"google.code_execution":         "code_execution",
	"google.url_context":            "url_context",
	"google.file_search":            "file_search",
}

// SplitProviderToolID splits a ProviderTool.ID into its provider prefix and
// native tool name, e.g. "anthropic.web_search_20250305" into ("anthropic",
// "web_search_20250305"). An id with no "." is returned as an empty
// provider with the whole id as native.
func SplitProviderToolID(id string) (provider, native string) {
	provider, native, ok := strings.Cut(id, ".")
	if !ok {
		return "", id
	}
	return provider, native
}

// ReservedToolNames builds the provider-native tool-id -> request-name map
// toolname.NewMapping's reserved parameter expects, from a Request's
// ProviderTools, so a caller's own function tool can never collide with a
// provider's built-in tool of the same name.
func ReservedToolNames(tools []ProviderTool) map[string]string {
	if len(tools) == 0 {
		return nil
	}
	out := make(map[string]string, len(tools))
	for _, t := range tools {
		if name, ok := ProviderToolNames[t.ID]; ok {
			out[t.ID] = name
			continue
		}
		_, native := SplitProviderToolID(t.ID)
		out[t.ID] = native
	}
	return out
}

// ForProvider returns the subset of tools whose ID belongs to provider
// (the prefix before the first "."), in order.
func ForProvider(tools []ProviderTool, provider string) []ProviderTool {
	var out []ProviderTool
	for _, t := range tools {
		if p, _ := SplitProviderToolID(t.ID); p == provider {
			out = append(out, t)
		}
	}
	return out
}
