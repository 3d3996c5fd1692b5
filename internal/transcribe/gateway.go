package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Gelzieny/tube-link-scribe/internal/metrics"
)

const (
	systemPrompt = "Você é um assistente especializado em transcrever vídeos do YouTube. " +
		"Quando receber uma URL de vídeo, analise o conteúdo e forneça uma transcrição detalhada em português. " +
		"Se não conseguir acessar o vídeo diretamente, explique isso e ofereça orientações sobre como obter a transcrição."
	userPromptFormat = "Por favor, transcreva o seguinte vídeo do YouTube: %s\n\n" +
		"Forneça a transcrição completa do áudio do vídeo em português."
)

// ErrNotConfigured is returned when the gateway has no API key.
var ErrNotConfigured = errors.New("AI_API_KEY not configured")

// StatusError is a non-200 answer from the AI gateway.
type StatusError struct {
	Model      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("AI gateway error (model %s, status %d): %s", e.Model, e.StatusCode, e.Body)
}

// modelMissing reports whether the gateway rejected the model itself.
func (e *StatusError) modelMissing() bool {
	if e.StatusCode == http.StatusNotFound {
		return true
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "model") && strings.Contains(body, "not found")
}

// GatewayClient calls an OpenAI-compatible chat completions endpoint.
// Implements the Transcriber interface.
type GatewayClient struct {
	url    string
	apiKey string
	models []string
	client *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewGatewayClient creates a client that tries models in order.
func NewGatewayClient(url, apiKey string, models []string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		url:    url,
		apiKey: apiKey,
		models: models,
		client: &http.Client{Timeout: timeout},
	}
}

// Models returns the configured model names in fallback order.
func (g *GatewayClient) Models() []string { return g.models }

// Transcribe asks the gateway for a transcript of videoURL. The next model is
// tried only when the current one is reported missing; any other failure is
// returned as is. An empty answer yields "" and no error.
func (g *GatewayClient) Transcribe(ctx context.Context, videoURL string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}
	if len(g.models) == 0 {
		return "", errors.New("no AI models configured")
	}

	var lastErr error
	for _, model := range g.models {
		text, err := g.complete(ctx, model, videoURL)
		if err == nil {
			metrics.AIRequestsTotal.WithLabelValues(model, "ok").Inc()
			return text, nil
		}

		var se *StatusError
		if errors.As(err, &se) && se.modelMissing() {
			metrics.AIRequestsTotal.WithLabelValues(model, "model_missing").Inc()
			lastErr = err
			continue
		}
		metrics.AIRequestsTotal.WithLabelValues(model, "error").Inc()
		return "", err
	}
	return "", lastErr
}

func (g *GatewayClient) complete(ctx context.Context, model, videoURL string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptFormat, videoURL)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Model: model, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
