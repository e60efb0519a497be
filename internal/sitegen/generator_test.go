package sitegen

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/shared/telemetry"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func TestGenerateSendsSitePromptOnce(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	client := &mockClient{}
	want := llm.SitePrompt("Jane Doe\nEngineer")
	client.On("Complete", mock.Anything, want).Return("--html--x--html----css--y--css----js--z--js--", nil).Once()

	gen := New(client, "gemini", "gemini-2.5-flash-lite")
	res, err := gen.Generate(context.Background(), "Jane Doe\nEngineer")
	require.NoError(t, err)

	assert.Equal(t, "--html--x--html----css--y--css----js--z--js--", res.Raw)
	assert.Equal(t, llm.PromptHash(want), res.PromptHash)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, "gemini-2.5-flash-lite", res.Model)
	client.AssertExpectations(t)
}

func TestGenerateReturnsRawTextUnvalidated(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	client := &mockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("no delimiters at all", nil).Once()

	res, err := New(client, "openai", "gpt-4o-mini").Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "no delimiters at all", res.Raw)
}

func TestGenerateWrapsProviderError(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	providerErr := errors.New("401 invalid api key")
	client := &mockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("", providerErr).Once()

	_, err := New(client, "gemini", "gemini-2.5-flash-lite").Generate(context.Background(), "cv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, providerErr)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestGeneratePlaceholderClient(t *testing.T) {
	restore := telemetry.SetOutput(io.Discard)
	defer restore()

	_, err := New(llm.PlaceholderClient{}, "none", "").Generate(context.Background(), "cv")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, llm.ErrNotImplemented)
}
