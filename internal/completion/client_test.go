// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/pocket-tui/internal/config"
	"github.com/jeranaias/pocket-tui/internal/filter"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// recordingServer captures every request body and replies with reply(n).
type recordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []request
	headers  []http.Header
}

func newRecordingServer(t *testing.T, reply func(n int) string) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var req request
		_ = json.Unmarshal(data, &req)

		rs.mu.Lock()
		rs.requests = append(rs.requests, req)
		rs.headers = append(rs.headers, r.Header.Clone())
		n := len(rs.requests)
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply(n))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *recordingServer) last() request {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.requests[len(rs.requests)-1]
}

func chatJSON(content string) string {
	data, _ := json.Marshal(map[string]any{
		"id":    "cmpl-1",
		"model": "test-model",
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
	})
	return string(data)
}

func testOptions(endpoint string) Options {
	return Options{
		Endpoint:     endpoint,
		Model:        "test-model",
		APIKey:       "hf_test",
		SystemPrompt: "be kind",
		MaxTokens:    200,
		Temperature:  0.5,
		ContextTurns: 6,
		Timeout:      5 * time.Second,
	}
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestSend_RequestShape(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("Hello there.") })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	reply := client.Send(context.Background(), "hi")
	assert.Equal(t, "Hello there.", reply)

	req := srv.last()
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, 200, req.MaxTokens)
	assert.Equal(t, 0.5, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, Turn{Role: RoleSystem, Content: "be kind"}, req.Messages[0])
	assert.Equal(t, Turn{Role: RoleUser, Content: "hi"}, req.Messages[1])

	h := srv.headers[0]
	assert.Equal(t, "Bearer hf_test", h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Content-Type"))
}

func TestSend_SystemPromptNeverLogged(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("ok") })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	client.Send(context.Background(), "one")
	client.Send(context.Background(), "two")

	for _, turn := range client.Turns() {
		assert.NotEqual(t, RoleSystem, turn.Role)
	}
	req := srv.last()
	assert.Equal(t, RoleSystem, req.Messages[0].Role)
	assert.Equal(t, 1, countRole(req.Messages, RoleSystem))
}

func countRole(turns []Turn, role string) int {
	n := 0
	for _, t := range turns {
		if t.Role == role {
			n++
		}
	}
	return n
}

// =============================================================================
// ROLLING WINDOW
// =============================================================================

func TestSend_RollingWindowBounded(t *testing.T) {
	srv := newRecordingServer(t, func(n int) string { return chatJSON(fmt.Sprintf("reply %d", n)) })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	for n := 1; n <= 10; n++ {
		client.Send(context.Background(), fmt.Sprintf("message %d", n))

		req := srv.last()
		prior := req.Messages[1:]
		assert.LessOrEqual(t, len(prior), 6, "round %d carried %d turns", n, len(prior))
		// The newest user turn is always last.
		assert.Equal(t, fmt.Sprintf("message %d", n), prior[len(prior)-1].Content)
	}

	assert.Len(t, client.Turns(), 20)
	window := client.Window()
	require.Len(t, window, 6)
	assert.Equal(t, "message 8", window[0].Content)
	assert.Equal(t, "reply 10", window[5].Content)
}

func TestSend_WindowDropsOldestFirst(t *testing.T) {
	srv := newRecordingServer(t, func(n int) string { return chatJSON(fmt.Sprintf("r%d", n)) })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	for n := 1; n <= 4; n++ {
		client.Send(context.Background(), fmt.Sprintf("u%d", n))
	}

	// 4th request: u1 r1 u2 r2 u3 r3 u4 -> last six start at r1.
	got := srv.last().Messages[1:]
	want := []string{"r1", "u2", "r2", "u3", "r3", "u4"}
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i].Content)
	}
}

func TestReset(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("ok") })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	client.Send(context.Background(), "before")
	client.Reset()
	assert.Empty(t, client.Turns())

	client.Send(context.Background(), "after")
	req := srv.last()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "after", req.Messages[1].Content)
}

// =============================================================================
// RESILIENCE
// =============================================================================

func TestSend_MissingKey(t *testing.T) {
	opts := testOptions("https://example.invalid/v1/chat/completions")
	opts.APIKey = "   "
	client := NewClient(opts, zerolog.Nop())

	assert.Equal(t, ReplyMissingKey, client.Send(context.Background(), "hi"))
	// The user turn is still logged; no assistant turn is.
	assert.Equal(t, []Turn{{Role: RoleUser, Content: "hi"}}, client.Turns())
}

func TestSend_InvalidURL(t *testing.T) {
	for _, endpoint := range []string{"", "::not a url", "ftp://host/path", "/relative/only"} {
		t.Run(endpoint, func(t *testing.T) {
			client := NewClient(testOptions(endpoint), zerolog.Nop())
			assert.Equal(t, ReplyInvalidURL, client.Send(context.Background(), "hi"))
		})
	}
}

func TestSend_NoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())
	assert.Equal(t, ReplyNoResponse, client.Send(context.Background(), "hi"))
	assert.Len(t, client.Turns(), 1)
}

func TestSend_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(testOptions(url), zerolog.Nop())
	assert.Equal(t, ReplyNoResponse, client.Send(context.Background(), "hi"))
}

func TestSend_MalformedJSON(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return `{"choices": [ this is not json` })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	assert.Equal(t, ReplyUnavailable, client.Send(context.Background(), "hi"))
}

func TestSend_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid credentials"}}`)
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())
	assert.Equal(t, ReplyUnavailable, client.Send(context.Background(), "hi"))
}

func TestSend_NonUTF8Payload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
	}))
	defer srv.Close()

	client := NewClient(testOptions(srv.URL), zerolog.Nop())
	assert.Equal(t, ReplyUnknown, client.Send(context.Background(), "hi"))
}

func TestSend_CancelledPacingWait(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("ok") })
	opts := testOptions(srv.URL)
	opts.RequestsPerMinute = 1
	client := NewClient(opts, zerolog.Nop())

	assert.Equal(t, "ok", client.Send(context.Background(), "first"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Equal(t, ReplyNoResponse, client.Send(ctx, "second"))
}

// =============================================================================
// DECODING
// =============================================================================

func TestSend_LenientDecode(t *testing.T) {
	// No role: strict decode fails, the key path still finds the content.
	srv := newRecordingServer(t, func(int) string { return `{"choices":[{"message":{"content":"  hi  "}}]}` })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	assert.Equal(t, "hi", client.Send(context.Background(), "hello"))
	turns := client.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hi"}, turns[1])
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		want   string
		wantOK bool
	}{
		{"strict", `{"choices":[{"message":{"role":"assistant","content":"a"}}]}`, "a", true},
		{"strict takes first choice", `{"choices":[{"message":{"role":"assistant","content":"a"}},{"message":{"role":"assistant","content":"b"}}]}`, "a", true},
		{"missing role", `{"choices":[{"message":{"content":"c"}}]}`, "c", true},
		{"legacy text field", `{"choices":[{"text":"t"}]}`, "t", true},
		{"no choices", `{"choices":[]}`, "", false},
		{"no choices key", `{"error":"nope"}`, "", false},
		{"content wrong type", `{"choices":[{"message":{"role":"assistant","content":42}}]}`, "", false},
		{"garbage", `<html>502</html>`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decode([]byte(tt.body))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// FILTERING
// =============================================================================

func TestSend_FiltersBoilerplate(t *testing.T) {
	raw := "I'm really sorry to hear that. Let's talk about what's making you anxious."
	srv := newRecordingServer(t, func(int) string { return chatJSON(raw) })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	reply := client.Send(context.Background(), "I feel anxious today")
	assert.Equal(t, "Let's talk about what's making you anxious.", reply)

	// The cleaned text is what enters the context.
	assert.Equal(t, reply, client.Turns()[1].Content)
}

func TestSend_CustomFilter(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("Hmm. Okay then.") })
	opts := testOptions(srv.URL)
	opts.Filter = filter.New("Hmm")
	client := NewClient(opts, zerolog.Nop())

	assert.Equal(t, "Okay then.", client.Send(context.Background(), "x"))
}

// =============================================================================
// CONFIGURATION
// =============================================================================

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = "hf_cfg"

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.Completion.Endpoint, opts.Endpoint)
	assert.Equal(t, "hf_cfg", opts.APIKey)
	assert.Equal(t, 6, opts.ContextTurns)
	assert.Equal(t, 60*time.Second, opts.Timeout)

	client := NewClient(opts, zerolog.Nop())
	assert.True(t, client.IsConfigured())
	assert.Equal(t, cfg.Completion.Model, client.Model())
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient(Options{}, zerolog.Nop())
	assert.False(t, client.IsConfigured())
	assert.Equal(t, config.DefaultSystemPrompt, client.opts.SystemPrompt)
	assert.Equal(t, DefaultContextTurns, client.opts.ContextTurns)
}

// =============================================================================
// CONCURRENT ACCESS TESTS
// =============================================================================

// TestSend_Concurrent verifies the context log survives concurrent sends.
// Run with: go test -race -run TestSend_Concurrent
func TestSend_Concurrent(t *testing.T) {
	srv := newRecordingServer(t, func(int) string { return chatJSON("ok") })
	client := NewClient(testOptions(srv.URL), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			client.Send(context.Background(), fmt.Sprintf("m%d", i))
			_ = client.Window()
		}(i)
	}
	wg.Wait()

	assert.Len(t, client.Turns(), 40)
}
