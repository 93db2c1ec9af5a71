package message

// Turn is a single flattened role/parts pair, the shape an application's own
// history store typically holds before handing it to a Request.
type Turn struct {
	Role  Role
	Parts []Part
}

// FromTurns constructs a Messages slice from entries, preserving order and
// part content without synthesis or normalization. Entries with an empty
// Role or no recognized parts are dropped rather than producing an empty
// Message; callers remain responsible for provider-specific ordering
// invariants (e.g. placing a ThinkingPart before a ToolUsePart in an
// assistant turn that also uses tools).
func FromTurns(entries []Turn) []Message {
	if len(entries) == 0 {
		return nil
	}
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		if e.Role == "" {
			continue
		}
		msg := Message{Role: e.Role, Parts: make([]Part, 0, len(e.Parts))}
		for _, p := range e.Parts {
			switch p.(type) {
			case TextPart, ImagePart, DocumentPart, ThinkingPart, ToolUsePart, ToolResultPart, CacheCheckpointPart:
				msg.Parts = append(msg.Parts, p)
			default:
				continue
			}
		}
		if len(msg.Parts) == 0 {
			continue
		}
		out = append(out, msg)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
