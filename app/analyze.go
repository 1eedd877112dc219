package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trilakes/ghostradar/app/config"
	"github.com/trilakes/ghostradar/app/models"
)

var httpc = &http.Client{Timeout: 30 * time.Second}

// Analyzer turns a message into a structured scan result. Implementations may
// be slow and may fail; callers must treat failure as retryable and distinct
// from a paywall denial.
type Analyzer interface {
	Analyze(ctx context.Context, messageText, direction string) (models.ScanResult, error)
}

const analysisSystemPrompt = `You are GhostRadar, an AI that analyzes text messages for social/romantic signals.

RULES:
- Return JSON matching the exact schema provided.
- Use probabilistic language only: "likely", "suggests", "indicates", "pattern resembles".
- NEVER claim certainty. NEVER diagnose mental health conditions. NEVER use words like "narcissist" or "toxic".
- Instead of labels, say "pattern resembles avoidant communication" etc.
- Be dramatic and engaging but responsible.
- Scores are 0-100 integers.
- hidden_signals_count should be 1-5 signals detected.
- archetype must be one of: "Hot/Cold", "Avoidant-Leaning", "Anxious-Leaning", "Direct Communicator", "Unclear Pattern"
- confidence must be one of: "Low", "Medium", "High"
- reply_window should be a range like "Likely 1-3 hours" or "Likely 6-12 hours" or "Likely 1-2 days"
- summary should be 1-2 dramatic sentences using probabilistic language.
- replies must be an object with keys "soft_confident", "playful", "direct", each a suggested response message (1-2 sentences).
- hidden_signals must be a list of objects with keys "title" and "detail".
- Respond with the JSON object only, matching keys: interest_score, red_flag_risk, emotional_distance, ghost_probability, reply_window, confidence, hidden_signals_count, hidden_signals, archetype, summary, replies.`

// OpenAIAnalyzer calls the OpenAI chat completions API in JSON mode.
type OpenAIAnalyzer struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTPC   *http.Client
}

// NewOpenAIAnalyzer builds the production analyzer from config.
func NewOpenAIAnalyzer(cfg config.OpenAIConfig) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: "https://api.openai.com/v1",
		HTTPC:   httpc,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat chatFormat    `json:"response_format"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, messageText, direction string) (models.ScanResult, error) {
	directionLabel := "sent by someone to the user"
	if direction == "me" {
		directionLabel = "sent by the user to someone"
	}

	userPrompt := fmt.Sprintf(`Analyze this message that was %s:

"""%s"""

Provide dramatic but probabilistic signal analysis. Be engaging and slightly suspenseful in the summary.
Detect hidden communication patterns, estimate ghost probability, and generate reply suggestions.`, directionLabel, messageText)

	reqBody := chatRequest{
		Model: a.Model,
		Messages: []chatMessage{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: chatFormat{Type: "json_object"},
		Temperature:    0.7,
	}

	var resp chatResponse
	if err := a.postJSON(ctx, a.BaseURL+"/chat/completions", reqBody, &resp); err != nil {
		return models.ScanResult{}, err
	}
	if resp.Error != nil {
		return models.ScanResult{}, fmt.Errorf("analysis api error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return models.ScanResult{}, errors.New("analysis api returned no choices")
	}

	var result models.ScanResult
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return models.ScanResult{}, fmt.Errorf("malformed analysis output: %w", err)
	}
	if err := validateScanResult(result); err != nil {
		return models.ScanResult{}, err
	}
	return result, nil
}

func validateScanResult(r models.ScanResult) error {
	for _, score := range []int{r.InterestScore, r.RedFlagRisk, r.EmotionalDistance, r.GhostProbability} {
		if score < 0 || score > 100 {
			return fmt.Errorf("analysis score out of range: %d", score)
		}
	}
	return nil
}

type httpError struct {
	Status int
	Body   string
}

func (e httpError) Error() string { return fmt.Sprintf("http %d: %s", e.Status, e.Body) }

// postJSON issues the request with a basic retry for 429/5xx.
func (a *OpenAIAnalyzer) postJSON(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}

	var last httpError
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+a.APIKey)

		res, err := a.HTTPC.Do(req)
		if err != nil {
			return err
		}

		if res.StatusCode == http.StatusOK {
			err := json.NewDecoder(res.Body).Decode(out)
			res.Body.Close()
			return err
		}

		var msg struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&msg)
		res.Body.Close()
		last = httpError{Status: res.StatusCode, Body: msg.Error.Message}

		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			time.Sleep(time.Duration(250*(attempt+1)) * time.Millisecond)
			continue
		}
		break
	}
	return last
}
