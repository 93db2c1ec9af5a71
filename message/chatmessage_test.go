package message

import "testing"

func TestToChatMessagesFlattensOnePerPart(t *testing.T) {
	msgs := []Message{
		Text(RoleSystem, "be terse"),
		Text(RoleUser, "hi"),
	}
	got := ToChatMessages(msgs)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Type != ChatMessageTypeSystem || got[0].Content != "be terse" {
		t.Fatalf("got[0] = %+v", got[0])
	}
	if got[1].Type != ChatMessageTypeUser || got[1].Content != "hi" {
		t.Fatalf("got[1] = %+v", got[1])
	}
}

func TestChatMessageRoundTripTextOnly(t *testing.T) {
	original := []Message{
		Text(RoleSystem, "be terse"),
		Text(RoleUser, "what is the capital of France?"),
		Text(RoleAssistant, "Paris"),
	}

	roundTripped := FromChatMessages(ToChatMessages(original))

	if len(roundTripped) != len(original) {
		t.Fatalf("len(roundTripped) = %d, want %d", len(roundTripped), len(original))
	}
	for i := range original {
		if roundTripped[i].Role != original[i].Role {
			t.Fatalf("message %d: role = %q, want %q", i, roundTripped[i].Role, original[i].Role)
		}
		if len(roundTripped[i].Parts) != 1 {
			t.Fatalf("message %d: len(Parts) = %d, want 1", i, len(roundTripped[i].Parts))
		}
		gotText, ok := roundTripped[i].Parts[0].(TextPart)
		if !ok {
			t.Fatalf("message %d: Parts[0] type = %T, want TextPart", i, roundTripped[i].Parts[0])
		}
		wantText := original[i].Parts[0].(TextPart)
		if gotText.Text != wantText.Text {
			t.Fatalf("message %d: Text = %q, want %q", i, gotText.Text, wantText.Text)
		}
	}
}

func TestFromChatMessagesMergesConsecutiveSameRoleParts(t *testing.T) {
	chatMsgs := []ChatMessage{
		{Type: ChatMessageTypeAssistant, Content: "let me check"},
		{Type: ChatMessageTypeToolCall, Content: `{"q":"weather"}`, ToolCallID: "tu1", ToolName: "search"},
	}
	got := FromChatMessages(chatMsgs)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (merged into one assistant message)", len(got))
	}
	if got[0].Role != RoleAssistant {
		t.Fatalf("Role = %q, want %q", got[0].Role, RoleAssistant)
	}
	if len(got[0].Parts) != 2 {
		t.Fatalf("len(Parts) = %d, want 2", len(got[0].Parts))
	}
	toolUse, ok := got[0].Parts[1].(ToolUsePart)
	if !ok {
		t.Fatalf("Parts[1] type = %T, want ToolUsePart", got[0].Parts[1])
	}
	if toolUse.ID != "tu1" || toolUse.Name != "search" {
		t.Fatalf("ToolUsePart = %+v", toolUse)
	}
}

func TestToChatMessagesDropsUnrepresentableParts(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Parts: []Part{ImagePart{Format: ImageFormatPNG, Bytes: []byte{1}}}},
	}
	if got := ToChatMessages(msgs); len(got) != 0 {
		t.Fatalf("ToChatMessages(image-only message) = %v, want empty", got)
	}
}
