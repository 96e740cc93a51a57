package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	resp     *llms.ContentResponse
	err      error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return f.resp, f.err
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainClient_Complete(t *testing.T) {
	model := &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "respuesta"}}}}
	client := NewLangChainClient(model, "llama3")

	out, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "hola"},
		},
		Temperature: 0.7,
		MaxTokens:   200,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "respuesta", out)
	assert.Equal(t, "llama3", client.Model())

	require.Len(t, model.messages, 2)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.InDelta(t, 0.7, model.opts.Temperature, 1e-9)
	assert.Equal(t, 200, model.opts.MaxTokens)
	assert.True(t, model.opts.JSONMode)
}

func TestLangChainClient_Errors(t *testing.T) {
	client := NewLangChainClient(&fakeModel{err: errors.New("offline")}, "m")
	_, err := client.Complete(context.Background(), Request{})
	assert.ErrorContains(t, err, "offline")

	client = NewLangChainClient(&fakeModel{resp: &llms.ContentResponse{}}, "m")
	_, err = client.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoChoices)
}
