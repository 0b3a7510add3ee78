package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/ap-invoice-intake/internal/application/port"
)

const transcribePrompt = "Transcribe every piece of text on this scanned invoice page exactly as printed, " +
	"line by line, keeping numbers, punctuation and separators unchanged. " +
	"Do not translate, summarise or add commentary. Reply with the plain text only."

// Config holds the vision OCR settings
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// VisionOCR implements port.OCREngine with an OpenAI vision model
type VisionOCR struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewVisionOCR creates a new OpenAI vision OCR engine
func NewVisionOCR(cfg Config, logger *zap.Logger) *VisionOCR {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}

	return &VisionOCR{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Name returns the engine identifier
func (v *VisionOCR) Name() string {
	return "openai:" + v.model
}

// Recognize sends one PNG page to the model and returns its transcription
func (v *VisionOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       v.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: transcribePrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	}

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		v.logger.Error("OpenAI vision call failed", zap.String("model", v.model), zap.Error(err))
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	text := stripFence(resp.Choices[0].Message.Content)

	v.logger.Debug("Page transcribed",
		zap.String("model", v.model),
		zap.Int("chars", len(text)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return text, nil
}

// stripFence removes a surrounding ``` block some models add despite the prompt
func stripFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.Index(s, "\n"); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ port.OCREngine = (*VisionOCR)(nil)
