package names

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// CandidateSupplier proposes additional name terms found in a text
// sample. Suppliers only ever widen the term set: the deterministic
// matcher contract never depends on them.
type CandidateSupplier interface {
	Candidates(ctx context.Context, sample string) ([]string, error)
}

const detectorSystemPrompt = `You extract person names from text. ` +
	`Reply with one full person name per line and nothing else. ` +
	`Reply with an empty message if there are none.`

// maxSampleRunes caps how much document text is sent to the model.
const maxSampleRunes = 6000

// OpenAIDetector is a CandidateSupplier backed by a chat-completion
// model.
type OpenAIDetector struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIDetector creates a detector using the given API key and model.
func NewOpenAIDetector(apiKey, model string, logger *zap.Logger) *OpenAIDetector {
	return &OpenAIDetector{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Candidates asks the model for person names appearing in sample.
func (d *OpenAIDetector) Candidates(ctx context.Context, sample string) ([]string, error) {
	sample = truncateRunes(sample, maxSampleRunes)
	if strings.TrimSpace(sample) == "" {
		return nil, nil
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: detectorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sample},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("candidate detection request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil
	}

	candidates := parseCandidateLines(resp.Choices[0].Message.Content)
	d.logger.Debug("candidate names detected",
		zap.Int("count", len(candidates)))
	return candidates, nil
}

// parseCandidateLines extracts one name per line, tolerating bullet
// and numbering prefixes the model sometimes adds.
func parseCandidateLines(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. \t")
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= 1 {
			continue
		}
		out = append(out, line)
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
