package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bkplatform/backend-go/internal/config"
	apperrors "github.com/bkplatform/backend-go/internal/errors"
	"github.com/bkplatform/backend-go/internal/logger"
)

// OllamaProvider 本地Ollama对话网关。
// 首次调用时Ollama可能还在拉取模型，超时上限设得很宽，
// 对读超时与5xx做有限次重试；4xx一律不重试。
type OllamaProvider struct {
	host       string
	model      string
	maxRetries int
	httpClient *http.Client
}

func NewOllamaProvider(cfg config.OllamaConfig, model string) *OllamaProvider {
	host := strings.TrimRight(cfg.Host, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = cfg.Model
	}
	if model == "" {
		model = "tinyllama:latest"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OllamaProvider{
		host:       host,
		model:      model,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (p *OllamaProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": 0.2},
	})
	if err != nil {
		return "", apperrors.NewExternalError("ollama", err)
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		content, retryable, err := p.doChat(ctx, payload)
		if err == nil {
			return content, nil
		}
		if !retryable {
			return "", err
		}
		lastErr = err
		if attempt < p.maxRetries {
			logger.Warn(fmt.Sprintf("ollama chat attempt %d/%d failed, retrying: %v", attempt, p.maxRetries, err))
		}
	}
	return "", lastErr
}

// doChat 单次请求，第二个返回值标记是否可重试
func (p *OllamaProvider) doChat(ctx context.Context, payload []byte) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", false, apperrors.NewExternalError("ollama", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", true, apperrors.NewUpstreamTimeoutError("ollama", err)
		}
		return "", false, apperrors.NewExternalError("ollama", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, apperrors.NewExternalError("ollama", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		wrapped := apperrors.NewExternalError("ollama",
			fmt.Errorf("ollama error %d: %s", resp.StatusCode, snippet))
		return "", resp.StatusCode >= 500, wrapped
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", false, apperrors.NewExternalError("ollama", err)
	}
	return parsed.Message.Content, false, nil
}
