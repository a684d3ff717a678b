package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
)

func TestSelect_ExplicitProviderMissingCreds(t *testing.T) {
	cfg := config.LLMConfig{}

	_, err := Select(cfg, "openai", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	_, err = Select(cfg, "hf", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestSelect_UnknownProvider(t *testing.T) {
	_, err := Select(config.LLMConfig{}, "bedrock", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestSelect_AutoFallbackOrder(t *testing.T) {
	// OpenAI凭据在时优先OpenAI
	gw, err := Select(config.LLMConfig{
		OpenAI:      config.OpenAIConfig{APIKey: "sk-test"},
		HuggingFace: config.HuggingFaceConfig{Token: "hf-test", ModelID: "some/model"},
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "openai", gw.Name())

	// 其次HuggingFace（需要token且已知模型）
	gw, err = Select(config.LLMConfig{
		HuggingFace: config.HuggingFaceConfig{Token: "hf-test", ModelID: "some/model"},
	}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "huggingface", gw.Name())

	// 都没有时兜底到本地Ollama
	gw, err = Select(config.LLMConfig{}, "", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama", gw.Name())
}

func TestSelect_TinyLLMAlias(t *testing.T) {
	gw, err := Select(config.LLMConfig{}, "tinyllm", "")
	require.NoError(t, err)
	assert.Equal(t, "ollama", gw.Name())
}

func TestOllama_Complete(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "pong"},
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(config.OllamaConfig{Host: server.URL, Model: "phi3:3.8b"}, "")
	got, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "pong", got)
	assert.Equal(t, "phi3:3.8b", gotReq.Model)
	assert.False(t, gotReq.Stream)
}

func TestOllama_RetriesOn5xx(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "model loading", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "recovered"},
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(config.OllamaConfig{Host: server.URL, MaxRetries: 3}, "")
	got, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, attempts)
}

func TestOllama_NoRetryOn4xx(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(config.OllamaConfig{Host: server.URL, MaxRetries: 3}, "")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.Error(t, err)
	// 4xx是确定性失败，重试没有意义
	assert.Equal(t, 1, attempts)
}

func TestOllama_ExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "still broken", http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewOllamaProvider(config.OllamaConfig{Host: server.URL, MaxRetries: 3}, "")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "ping"}})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestFlattenPrompt(t *testing.T) {
	got := flattenPrompt([]Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "what time is it"},
		{Role: RoleAssistant, Content: "noon"},
	})
	assert.Contains(t, got, "[SYSTEM]\nbe terse\n")
	assert.Contains(t, got, "[USER]\nwhat time is it\n")
	assert.Contains(t, got, "[ASSISTANT]\nnoon\n")
	// 末尾留空的助手段引导模型续写
	assert.True(t, strings.HasSuffix(got, "[ASSISTANT]\n"))
}

func TestHuggingFace_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mistralai/Mistral-7B-Instruct-v0.2", r.URL.Path)
		assert.Equal(t, "Bearer hf-test", r.Header.Get("Authorization"))

		var req hfRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Inputs, "[USER]")

		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "  flat answer  "}})
	}))
	defer server.Close()

	p := NewHuggingFaceProvider(config.HuggingFaceConfig{Token: "hf-test", APIBase: server.URL}, "")
	got, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "flat answer", got)
}

func TestHuggingFace_ErrorIncludesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gated model", http.StatusForbidden)
	}))
	defer server.Close()

	p := NewHuggingFaceProvider(config.HuggingFaceConfig{Token: "hf-test", APIBase: server.URL}, "")
	_, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestParseHFResponse_Variants(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "list form", body: `[{"generated_text":"from list"}]`, want: "from list"},
		{name: "object form", body: `{"generated_text":"from object"}`, want: "from object"},
		{name: "choices form", body: `{"choices":[{"text":"from choices"}]}`, want: "from choices"},
		{name: "unknown form", body: `{"something":"else"}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHFResponse([]byte(tt.body)))
		})
	}
}
