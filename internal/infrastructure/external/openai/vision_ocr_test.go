package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, status int, body string, seen *map[string]interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestVisionOCR_Recognize(t *testing.T) {
	var seen map[string]interface{}
	server := newTestServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "FACTURA A\nOC: P01234"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 900, "completion_tokens": 12, "total_tokens": 912}
	}`, &seen)

	ocr := NewVisionOCR(Config{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: server.URL + "/v1"}, zap.NewNop())

	text, err := ocr.Recognize(context.Background(), []byte("png-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "FACTURA A\nOC: P01234", text)
	assert.Equal(t, "openai:gpt-4o-mini", ocr.Name())
	assert.Equal(t, "gpt-4o-mini", seen["model"])

	messages := seen["messages"].([]interface{})
	parts := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", image["url"])
}

func TestVisionOCR_APIError(t *testing.T) {
	server := newTestServer(t, http.StatusUnauthorized,
		`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`, nil)
	ocr := NewVisionOCR(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"}, zap.NewNop())

	text, err := ocr.Recognize(context.Background(), []byte("png"))

	assert.Error(t, err)
	assert.Empty(t, text)
}

func TestVisionOCR_NoChoices(t *testing.T) {
	server := newTestServer(t, http.StatusOK, `{"id": "chatcmpl-2", "choices": []}`, nil)
	ocr := NewVisionOCR(Config{APIKey: "test-key", BaseURL: server.URL + "/v1"}, zap.NewNop())

	_, err := ocr.Recognize(context.Background(), []byte("png"))

	assert.Error(t, err)
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  OC: P01234 \n", want: "OC: P01234"},
		{name: "fenced with language", in: "```text\nOC: P01234\nTOTAL 100\n```", want: "OC: P01234\nTOTAL 100"},
		{name: "bare fence", in: "```\nCUIT 30-12345678-9```", want: "CUIT 30-12345678-9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFence(tt.in))
		})
	}
}
