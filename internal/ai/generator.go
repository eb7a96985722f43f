package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/veda-classroom/backend/config"
	"github.com/veda-classroom/backend/internal/models"
)

// Generator produces multiple-choice questions for a topic.
type Generator interface {
	GenerateQuestions(ctx context.Context, topic string, count int) ([]models.AIQuestion, error)
}

// GeminiGenerator calls a Gemini-style generateContent endpoint and
// parses the JSON array of questions out of the model's reply.
type GeminiGenerator struct {
	cfg    config.AIConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiGenerator creates a generator backed by the configured API.
func NewGeminiGenerator(cfg config.AIConfig, logger *zap.Logger) *GeminiGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiGenerator{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

const promptTemplate = `Generate %d multiple-choice questions about "%s".
Respond with only a JSON array. Each element must have the shape
{"question": string, "options": [4 strings], "correctAnswer": index 0-3}.`

// GenerateQuestions asks the model for count questions on topic.
func (g *GeminiGenerator) GenerateQuestions(ctx context.Context, topic string, count int) ([]models.AIQuestion, error) {
	if g.cfg.APIKey == "" {
		return nil, fmt.Errorf("ai generation not configured")
	}
	if count <= 0 {
		count = 5
	}

	var req generateRequest
	req.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Parts = []struct {
		Text string `json:"text"`
	}{{Text: fmt.Sprintf(promptTemplate, count, topic)}}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(g.cfg.Endpoint, "/"), g.cfg.Model, g.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call generation api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		g.logger.Warn("generation api error", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("generation api returned %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty generation response")
	}

	questions, err := ParseQuestions(gr.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// ParseQuestions extracts the question array from model output, which
// often arrives wrapped in a markdown code fence.
func ParseQuestions(text string) ([]models.AIQuestion, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var questions []models.AIQuestion
	if err := json.Unmarshal([]byte(text), &questions); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	for i, q := range questions {
		if q.Question == "" || len(q.Options) < 2 {
			return nil, fmt.Errorf("malformed question at index %d", i)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return nil, fmt.Errorf("correct answer out of range at index %d", i)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("no questions in response")
	}
	return questions, nil
}
