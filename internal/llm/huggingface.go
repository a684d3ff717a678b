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
)

// HuggingFaceProvider HuggingFace Inference API网关。
// 推理端点接受的是单段文本而非对话结构，发送前把消息压平成指令提示。
type HuggingFaceProvider struct {
	token      string
	modelID    string
	apiBase    string
	httpClient *http.Client
}

func NewHuggingFaceProvider(cfg config.HuggingFaceConfig, model string) *HuggingFaceProvider {
	if model == "" {
		model = cfg.ModelID
	}
	if model == "" {
		model = "mistralai/Mistral-7B-Instruct-v0.2"
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/")
	if apiBase == "" {
		apiBase = "https://api-inference.huggingface.co/models"
	}
	return &HuggingFaceProvider{
		token:      cfg.Token,
		modelID:    model,
		apiBase:    apiBase,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *HuggingFaceProvider) Name() string {
	return "huggingface"
}

// flattenPrompt 把对话消息压平为带角色标记的文本，末尾留[ASSISTANT]引导续写
func flattenPrompt(messages []Message) string {
	parts := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			parts = append(parts, fmt.Sprintf("[SYSTEM]\n%s\n", m.Content))
		case RoleUser:
			parts = append(parts, fmt.Sprintf("[USER]\n%s\n", m.Content))
		default:
			parts = append(parts, fmt.Sprintf("[ASSISTANT]\n%s\n", m.Content))
		}
	}
	parts = append(parts, "[ASSISTANT]\n")
	return strings.Join(parts, "\n")
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters"`
}

func (p *HuggingFaceProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(hfRequest{
		Inputs: flattenPrompt(messages),
		Parameters: map[string]any{
			"temperature":      0.2,
			"max_new_tokens":   256,
			"return_full_text": false,
		},
	})
	if err != nil {
		return "", apperrors.NewExternalError("huggingface", err)
	}

	url := p.apiBase + "/" + p.modelID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.NewExternalError("huggingface", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.NewUpstreamTimeoutError("huggingface", err)
		}
		return "", apperrors.NewExternalError("huggingface", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewExternalError("huggingface", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return "", apperrors.NewExternalError("huggingface",
			fmt.Errorf("hf api error %d for %s: %s", resp.StatusCode, p.modelID, snippet))
	}
	return parseHFResponse(body), nil
}

// parseHFResponse 不同HF后端的响应形态略有差异，逐一尝试
func parseHFResponse(body []byte) string {
	var asList []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(body, &asList); err == nil && len(asList) > 0 {
		return strings.TrimSpace(asList[0].GeneratedText)
	}

	var asObject struct {
		GeneratedText string `json:"generated_text"`
		Choices       []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &asObject); err == nil {
		if asObject.GeneratedText != "" {
			return strings.TrimSpace(asObject.GeneratedText)
		}
		if len(asObject.Choices) > 0 {
			return strings.TrimSpace(asObject.Choices[0].Text)
		}
	}
	return ""
}
