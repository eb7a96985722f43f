package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veda-classroom/backend/config"
)

func TestParseQuestionsPlainJSON(t *testing.T) {
	qs, err := ParseQuestions(`[{"question":"2+2?","options":["3","4","5","6"],"correctAnswer":1}]`)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, "2+2?", qs[0].Question)
	assert.Equal(t, 1, qs[0].CorrectAnswer)
}

func TestParseQuestionsStripsCodeFence(t *testing.T) {
	text := "```json\n[{\"question\":\"Q\",\"options\":[\"a\",\"b\"],\"correctAnswer\":0}]\n```"
	qs, err := ParseQuestions(text)
	require.NoError(t, err)
	assert.Len(t, qs, 1)
}

func TestParseQuestionsRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":            "hello",
		"empty array":         "[]",
		"missing question":    `[{"options":["a","b"],"correctAnswer":0}]`,
		"one option":          `[{"question":"Q","options":["a"],"correctAnswer":0}]`,
		"answer out of range": `[{"question":"Q","options":["a","b"],"correctAnswer":5}]`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseQuestions(text)
			assert.Error(t, err)
		})
	}
}

func TestGeminiGeneratorCallsEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "models/test-model")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"question\":\"Q\",\"options\":[\"a\",\"b\",\"c\",\"d\"],\"correctAnswer\":2}]"}]}}]}`))
	}))
	defer srv.Close()

	gen := NewGeminiGenerator(config.AIConfig{APIKey: "k", Model: "test-model", Endpoint: srv.URL}, nil)
	qs, err := gen.GenerateQuestions(context.Background(), "algebra", 1)
	require.NoError(t, err)
	require.Len(t, qs, 1)
	assert.Equal(t, 2, qs[0].CorrectAnswer)
}

func TestGeminiGeneratorAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen := NewGeminiGenerator(config.AIConfig{APIKey: "k", Model: "m", Endpoint: srv.URL}, nil)
	_, err := gen.GenerateQuestions(context.Background(), "algebra", 1)
	assert.Error(t, err)
}

func TestGeminiGeneratorUnconfigured(t *testing.T) {
	gen := NewGeminiGenerator(config.AIConfig{}, nil)
	_, err := gen.GenerateQuestions(context.Background(), "algebra", 1)
	assert.Error(t, err)
}
