// Package gemini implements the Google Gemini generateContent/
// streamGenerateContent REST protocol: request construction, non-stream
// response parsing, and the SSE streaming state machine. The package owns
// its wire JSON directly rather than depending on generative-ai-go's
// GenerativeModel/GenerateContent calls; generative-ai-go is still used
// elsewhere in this module for its HarmCategory/HarmBlockThreshold enums
// (see registry.GeminiSafetySettings) and model-class catalog entries
// (registry.GeminiCatalog).
package gemini

import "encoding/json"

// generateContentRequest is the full request body for POST
// /v1beta/models/{model}:generateContent (or :streamGenerateContent).
type generateContentRequest struct {
	Contents          []wireContent      `json:"contents"`
	SystemInstruction *wireContent       `json:"systemInstruction,omitempty"`
	Tools             []wireTool         `json:"tools,omitempty"`
	ToolConfig        *wireToolConfig    `json:"toolConfig,omitempty"`
	SafetySettings    []wireSafety       `json:"safetySettings,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

// wireContent is one turn: a role plus an ordered list of parts. Gemini
// uses "user" and "model" for conversational turns; system content travels
// separately in SystemInstruction.
type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart is a tagged union: exactly one of Text, InlineData, FunctionCall,
// or FunctionResponse is set.
type wirePart struct {
	Text             string            `json:"text,omitempty"`
	InlineData       *wireBlob         `json:"inlineData,omitempty"`
	FunctionCall     *wireFunctionCall `json:"functionCall,omitempty"`
	FunctionResponse *wireFuncResponse `json:"functionResponse,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type wireFuncResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type wireTool struct {
	FunctionDeclarations []wireFunctionDecl `json:"functionDeclarations,omitempty"`
	CodeExecution        json.RawMessage    `json:"codeExecution,omitempty"`
	GoogleSearch         json.RawMessage    `json:"googleSearch,omitempty"`
	URLContext           json.RawMessage    `json:"urlContext,omitempty"`
	FileSearch           json.RawMessage    `json:"fileSearch,omitempty"`
}

type wireFunctionDecl struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type wireToolConfig struct {
	FunctionCallingConfig wireFunctionCallingConfig `json:"functionCallingConfig"`
}

type wireFunctionCallingConfig struct {
	Mode                 string   `json:"mode"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type wireSafety struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type thinkingConfig struct {
	ThinkingBudget  *int `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}

type generationConfig struct {
	Temperature     *float32        `json:"temperature,omitempty"`
	TopP            *float32        `json:"topP,omitempty"`
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	StopSequences   []string        `json:"stopSequences,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// generateContentResponse is the full non-stream response body, and also
// the shape of each SSE "data:" payload while streaming.
type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion,omitempty"`
}

type candidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
	Index        int         `json:"index"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount"`
}

// wireError is the error envelope the Gemini REST API returns on non-2xx
// responses, wrapped in an "error" object.
type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
