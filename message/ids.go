package message

import "github.com/google/uuid"

// NewCallID synthesizes a stable tool-call identifier for protocols that do
// not assign one on the wire (Gemini function calls and Ollama tool calls
// are both positional, not id-tagged). Providers that do receive a native
// call id from the wire should use it instead of calling this.
func NewCallID() string {
	return "call_" + uuid.NewString()
}
