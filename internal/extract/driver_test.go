package extract

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/resilience"
	"github.com/sells-group/menu-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}
}

func testConfig() Config {
	return Config{
		Model:       "claude-haiku-4-5-20251001",
		ChunkChars:  60,
		Concurrency: 2,
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		},
	}
}

func promptContains(s string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && strings.Contains(req.Messages[0].Content, s)
	})
}

func TestDriver_ExtractText_ChunksInOrder(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, promptContains("KAHVALTILAR")).
		Return(textResponse(`[{"name":"Menemen","price":120,"category":"KAHVALTILAR"}]`), nil)
	client.On("CreateMessage", mock.Anything, promptContains("İÇECEKLER")).
		Return(textResponse(`[{"name":"Çay","price":20,"category":"İÇECEKLER"}]`), nil)

	text := "KAHVALTILAR\nSerpme Kahvaltı 250\nMenemen 120\n" + "İÇECEKLER\nÇay 20\nKahve 50"
	d := NewDriver(client, Config{Model: "m", ChunkChars: 45, Retry: testConfig().Retry})

	res, err := d.ExtractText(context.Background(), text, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.Zero(t, res.FailedChunks)
	items := res.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Menemen", items[0].Name)
	assert.Equal(t, "Çay", items[1].Name)
	assert.Equal(t, 2, res.Usage.Calls)
	assert.Equal(t, 200, res.Usage.InputTokens)
}

func TestDriver_ParseFailureContributesNothing(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("I cannot help with that."), nil)

	d := NewDriver(client, testConfig())
	res, err := d.ExtractText(context.Background(), "Çay 20", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedChunks)
	assert.Empty(t, res.Items())
	assert.Equal(t, 1, res.Usage.Calls)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestDriver_RetriesRateLimit(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewRateLimitedError(errors.New("429"), 0)).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"Kola","price":30}]`), nil).Once()

	d := NewDriver(client, testConfig())
	res, err := d.ExtractText(context.Background(), "Kola 30", "İçecekler")
	require.NoError(t, err)
	require.Len(t, res.Items(), 1)
	assert.Equal(t, "Kola", res.Items()[0].Name)
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestDriver_ExhaustedRetriesAreNonFatal(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("503"), 503))

	d := NewDriver(client, testConfig())
	res, err := d.ExtractText(context.Background(), "Su 10", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedChunks)
	assert.Empty(t, res.Items())
	client.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestDriver_FatalNotRetried(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("invalid request"))

	d := NewDriver(client, testConfig())
	res, err := d.ExtractText(context.Background(), "Su 10", "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedChunks)
	client.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestDriver_ExtractImages_BatchesOfTwo(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages[0].Images) <= 2 && len(req.Messages[0].Images) > 0
	})).Run(func(mock.Arguments) { calls.Add(1) }).
		Return(textResponse(`[{"name":"Lahmacun","price":80}]`), nil)

	imgs := make([]model.Image, 3)
	for i := range imgs {
		imgs[i] = model.Image{Data: []byte{1}, MediaType: "image/png"}
	}

	d := NewDriver(client, testConfig())
	res, err := d.ExtractImages(context.Background(), imgs, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Chunks)
	assert.Len(t, res.Batches, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDriver_HintInPrompt(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, promptContains(`"Tatlılar"`)).
		Return(textResponse(`[]`), nil)

	d := NewDriver(client, testConfig())
	_, err := d.ExtractText(context.Background(), "Baklava 150", "Tatlılar")
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestDriver_CanceledContext(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDriver(client, testConfig())
	_, err := d.ExtractText(ctx, "Su 10", "")
	require.Error(t, err)
}

func TestDriver_EmptyInput(t *testing.T) {
	t.Parallel()

	d := NewDriver(&mockClient{}, testConfig())
	res, err := d.ExtractText(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.Zero(t, res.Chunks)
}
