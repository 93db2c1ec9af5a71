package generate_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyprompt/polyprompt/capability"
	"github.com/polyprompt/polyprompt/generate"
	"github.com/polyprompt/polyprompt/llmerr"
	"github.com/polyprompt/polyprompt/message"
)

type fakeClient struct {
	text string
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	return &message.Response{Content: []message.Message{message.Text(message.RoleAssistant, f.text)}}, nil
}

type fakeStreamer struct {
	deltas []string
	i      int
}

func (s *fakeStreamer) Recv() (message.StreamEvent, error) {
	if s.i >= len(s.deltas) {
		return message.StreamEvent{}, io.EOF
	}
	delta := s.deltas[s.i]
	s.i++
	return message.StreamEvent{Type: message.StreamEventText, TextDelta: delta}, nil
}

func (s *fakeStreamer) Close() error             { return nil }
func (s *fakeStreamer) Metadata() map[string]any { return nil }

type fakeStreamingClient struct {
	fakeClient
	deltas []string
}

func (f *fakeStreamingClient) Stream(ctx context.Context, req *message.Request) (capability.Streamer, error) {
	return &fakeStreamer{deltas: f.deltas}, nil
}

func schemaWithRequiredAnswer() generate.Schema {
	return generate.NewObjectSchema(map[string]generate.Schema{
		"answer": generate.Integer(),
	}, []string{"answer"})
}

func TestGenerateObjectValidatesAgainstSchema(t *testing.T) {
	client := &fakeClient{text: "Here is the result:\n```json\n{\"answer\":42}\n```\n"}
	obj, err := generate.GenerateObject(context.Background(), client, &message.Request{}, schemaWithRequiredAnswer())
	require.NoError(t, err)
	assert.EqualValues(t, 42, obj["answer"])
}

func TestGenerateObjectFailsSchemaValidationOnMissingRequiredField(t *testing.T) {
	client := &fakeClient{text: `{"other": 1}`}
	_, err := generate.GenerateObject(context.Background(), client, &message.Request{}, schemaWithRequiredAnswer())
	require.Error(t, err)
	assert.True(t, llmerr.Is(err, llmerr.KindStructuredOutput))
}

func TestGenerateObjectFailsOnUnparseableOutput(t *testing.T) {
	client := &fakeClient{text: "not json at all"}
	_, err := generate.GenerateObject(context.Background(), client, &message.Request{}, schemaWithRequiredAnswer())
	require.Error(t, err)
	assert.True(t, llmerr.Is(err, llmerr.KindResponseFormat))
}

func TestStreamObjectAccumulatesTextDeltas(t *testing.T) {
	client := &fakeStreamingClient{deltas: []string{`{"ans`, `wer":`, `42}`}}
	obj, err := generate.StreamObject(context.Background(), client, &message.Request{}, schemaWithRequiredAnswer())
	require.NoError(t, err)
	assert.EqualValues(t, 42, obj["answer"])
}

func TestCompleteErrorPropagates(t *testing.T) {
	client := &erroringClient{err: errors.New("boom")}
	_, err := generate.GenerateObject(context.Background(), client, &message.Request{}, schemaWithRequiredAnswer())
	require.Error(t, err)
}

type erroringClient struct{ err error }

func (e *erroringClient) Name() string { return "fake" }
func (e *erroringClient) Complete(ctx context.Context, req *message.Request) (*message.Response, error) {
	return nil, e.err
}
