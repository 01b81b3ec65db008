package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkulima/asha/internal/metrics"
	"github.com/mkulima/asha/internal/models"
	"github.com/mkulima/asha/pkg/config"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// maxHistoryTurns bounds how much conversation history is sent to the model.
const maxHistoryTurns = 8

// LanguageModel generates a reply from a system instruction and a
// conversation. The last entry of conversation is the caller's message.
type LanguageModel interface {
	Generate(ctx context.Context, system string, conversation []models.Message) (string, error)
}

// NewLanguageModel builds the backend selected by cfg.Provider. It returns
// nil, nil when no model is configured.
//
// Example:
//
//	model, err := services.NewLanguageModel(cfg.LLM, http.DefaultClient)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("Language model setup failed")
//	}
//	fallback := services.NewLLMFallback(model)
func NewLanguageModel(cfg config.LLMConfig, httpClient *http.Client) (LanguageModel, error) {
	switch cfg.Provider {
	case config.LLMProviderNone:
		return nil, nil
	case config.LLMProviderHTTP:
		return NewHTTPLanguageModel(cfg.Endpoint, cfg.APIKey, cfg.Model, httpClient), nil
	case config.LLMProviderGemini:
		return NewGeminiLanguageModel(context.Background(), cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// HTTPLanguageModel calls a plain JSON text-generation endpoint.
//
// Request:
//
//	{"model": "...", "messages": [{"role": "system", "content": "..."}, {"role": "user", "content": "..."}]}
//
// The reply is read from "response", "result.response" or
// "choices[0].message.content", whichever is present.
type HTTPLanguageModel struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewHTTPLanguageModel creates an HTTP-backed model.
func NewHTTPLanguageModel(endpoint, apiKey, model string, httpClient *http.Client) *HTTPLanguageModel {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPLanguageModel{endpoint: endpoint, apiKey: apiKey, model: model, client: httpClient}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model,omitempty"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Response string `json:"response"`
	Result   *struct {
		Response string `json:"response"`
	} `json:"result,omitempty"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (r chatCompletionResponse) text() string {
	switch {
	case r.Response != "":
		return r.Response
	case r.Result != nil && r.Result.Response != "":
		return r.Result.Response
	case len(r.Choices) > 0:
		return r.Choices[0].Message.Content
	}
	return ""
}

// Generate posts the conversation and returns the model's reply.
func (m *HTTPLanguageModel) Generate(ctx context.Context, system string, conversation []models.Message) (string, error) {
	messages := make([]chatMessage, 0, len(conversation)+1)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, msg := range conversation {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Text})
	}

	body, err := json.Marshal(chatCompletionRequest{Model: m.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	start := time.Now()
	resp, err := m.client.Do(req)
	if err != nil {
		metrics.RecordUpstream("llm", "generate", "error", time.Since(start))
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordUpstream("llm", "generate", fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("language model returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("language model error: %s", result.Error.Message)
	}
	return result.text(), nil
}

// GeminiLanguageModel generates replies with Google Gemini.
type GeminiLanguageModel struct {
	client *genai.Client
	model  string
}

// NewGeminiLanguageModel creates a Gemini-backed model.
func NewGeminiLanguageModel(ctx context.Context, apiKey, model string) (*GeminiLanguageModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiLanguageModel{client: client, model: model}, nil
}

// Generate sends the conversation to Gemini with system as the system
// instruction.
func (m *GeminiLanguageModel) Generate(ctx context.Context, system string, conversation []models.Message) (string, error) {
	contents := make([]*genai.Content, 0, len(conversation))
	for _, msg := range conversation {
		role := genai.Role(genai.RoleUser)
		if msg.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Text, role))
	}

	start := time.Now()
	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
	metrics.RecordUpstream("gemini", "generate", metrics.Status(err), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return result.Text(), nil
}

// LLMFallback answers general questions with an optional language model.
// Every failure path returns the caller's fallback text.
type LLMFallback struct {
	model LanguageModel
}

// NewLLMFallback wraps model, which may be nil.
func NewLLMFallback(model LanguageModel) *LLMFallback {
	return &LLMFallback{model: model}
}

// Complete returns the model's reply to message, or fallback when no model
// is configured, the call fails, or the reply is blank. Only the most
// recent history entries are sent. There are no retries.
//
// Example:
//
//	reply := fallback.Complete(ctx, history, "How do I store maize?", models.LanguageSwahili,
//	    "Samahani, sikuelewa. Tafadhali jaribu tena.")
func (f *LLMFallback) Complete(ctx context.Context, history []models.Message, message string, language models.Language, fallback string) string {
	if f == nil || f.model == nil {
		return fallback
	}

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	conversation := make([]models.Message, 0, len(history)+1)
	conversation = append(conversation, history...)
	conversation = append(conversation, models.Message{Role: models.RoleUser, Text: message})

	reply, err := f.model.Generate(ctx, systemInstruction(language), conversation)
	if err != nil {
		log.Warn().Err(err).Msg("Language model call failed, using fallback reply")
		return fallback
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallback
	}
	return reply
}

func systemInstruction(language models.Language) string {
	name := "English"
	if language == models.LanguageSwahili {
		name = "Swahili (Kiswahili)"
	}
	return "You are Asha, a friendly assistant for a Kenyan agricultural marketplace. " +
		"Help farmers and buyers with produce, prices, weather and orders. " +
		"Keep answers short and practical. Always reply in " + name + "."
}
