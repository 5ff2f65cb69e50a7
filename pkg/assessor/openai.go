package assessor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/internal/utils"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
	temperature    = 0.4
)

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

type (
	Config struct {
		APIKey  string
		Model   string
		BaseURL string
		Timeout time.Duration
	}

	openAIAssessor struct {
		cfg        Config
		httpClient *http.Client
	}
)

func LoadConfig() Config {
	return Config{
		APIKey:  utils.GetConfig("OPENAI_API_KEY"),
		Model:   utils.GetConfigOr("OPENAI_MODEL", defaultModel),
		BaseURL: utils.GetConfigOr("OPENAI_BASE_URL", defaultBaseURL),
		Timeout: utils.GetDuration("ASSESS_TIMEOUT", 60*time.Second),
	}
}

// NewOpenAIAssessor builds a HealthAssessor backed by the chat completions API.
func NewOpenAIAssessor(cfg Config) (domain.HealthAssessor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return newOpenAIAssessor(cfg), nil
}

func newOpenAIAssessor(cfg Config) *openAIAssessor {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &openAIAssessor{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (a *openAIAssessor) Assess(ctx context.Context, text string) (*domain.Assessment, error) {
	requestBody := map[string]interface{}{
		"model":           a.cfg.Model,
		"temperature":     temperature,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": buildUserPrompt(text)},
		},
	}

	requestJSON, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(requestJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrHealthScoreFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: openai API error: %s - %s", domain.ErrHealthScoreFetchFailed, resp.Status, string(bodyBytes))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", domain.ErrHealthDataNotReturned, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in completion", domain.ErrHealthDataNotReturned)
	}

	return ParseAssessment(completion.Choices[0].Message.Content)
}

// ParseAssessment extracts and validates an assessment from model output. The
// model is asked for bare JSON but markdown fences or chatter are tolerated.
func ParseAssessment(content string) (*domain.Assessment, error) {
	content = strings.TrimSpace(content)
	if content == "" || content == "null" {
		return nil, fmt.Errorf("%w: empty content", domain.ErrHealthDataNotReturned)
	}

	if m := jsonObject.FindString(content); m != "" {
		content = m
	}

	var assessment domain.Assessment
	if err := json.Unmarshal([]byte(content), &assessment); err != nil {
		log.Warnw("unparseable assessment", "error", err, "content", truncate(content, 512))
		return nil, fmt.Errorf("%w: %v", domain.ErrHealthDataNotReturned, err)
	}

	normalize(&assessment)
	if !assessment.Valid() {
		return nil, fmt.Errorf("%w: invalid assessment (score %d)", domain.ErrHealthDataNotReturned, assessment.HealthScore)
	}
	return &assessment, nil
}

func normalize(a *domain.Assessment) {
	if a.Ingredients == nil {
		a.Ingredients = []string{}
	}
	if a.HarmfulIngredients == nil {
		a.HarmfulIngredients = []domain.HarmfulIngredient{}
	}
	for i := range a.HarmfulIngredients {
		h := &a.HarmfulIngredients[i]
		h.Name = strings.TrimSpace(h.Name)
		h.RiskLevel = strings.ToLower(strings.TrimSpace(h.RiskLevel))
		h.Reason = strings.TrimSpace(h.Reason)
	}
	a.Recommendation = strings.TrimSpace(a.Recommendation)
	a.SummaryNote = strings.TrimSpace(a.SummaryNote)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
