package advice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kiracore/jirapulse/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) config.LLMConfig {
	cfg := config.Default().LLM
	cfg.APIKey = "secret"
	cfg.BaseURL = url
	return cfg
}

func TestClientAdvise(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.3-70b-versatile", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 2048, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, SystemPrompt, req.Messages[0].Content)
		assert.Equal(t, "как дела?", req.Messages[1].Content)

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"1. Всё хорошо"}}]}`))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL+"/"), zerolog.Nop())
	got, err := c.Advise(context.Background(), "как дела?")
	require.NoError(t, err)
	assert.Equal(t, "1. Всё хорошо", got)
}

func TestClientAdvise_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":"rate limited"}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewClient(testConfig(server.URL), zerolog.Nop()).Advise(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestNew_DisabledWithoutKey(t *testing.T) {
	a := New(config.Default().LLM, zerolog.Nop())
	assert.False(t, a.Enabled())

	_, err := a.Advise(context.Background(), "x")
	assert.ErrorIs(t, err, ErrDisabled)
}

type stubAdvisor struct {
	text string
	err  error
}

func (s stubAdvisor) Enabled() bool { return true }

func (s stubAdvisor) Advise(context.Context, string) (string, error) { return s.text, s.err }

func TestAsk(t *testing.T) {
	ok := Ask(context.Background(), stubAdvisor{text: "  совет \n"}, "daily", "p", zerolog.Nop())
	assert.True(t, ok.OK())
	assert.Equal(t, "совет", ok.Text)

	failed := Ask(context.Background(), stubAdvisor{err: errors.New("down")}, "daily", "p", zerolog.Nop())
	assert.False(t, failed.OK())
	assert.Error(t, failed.Err)
	assert.Empty(t, failed.Text)

	disabled := Ask(context.Background(), Noop(), "daily", "p", zerolog.Nop())
	assert.False(t, disabled.OK())
	assert.NoError(t, disabled.Err)

	assert.False(t, Ask(context.Background(), nil, "daily", "p", zerolog.Nop()).OK())
}
