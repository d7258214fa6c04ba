package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/gdg-paro/eventsync/model"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	defaultModel   = "gemini-pro"
)

// Config holds the credentials and endpoint for the generative language API.
// The API key is always supplied by the caller, never embedded.
type Config struct {
	APIKey string

	// Model defaults to gemini-pro.
	Model string

	// BaseURL overrides the API host. Tests point this at a stub server.
	BaseURL string

	HTTPClient *http.Client
}

// Client calls the generative language API to turn a student's interest
// description plus the event corpus into scored recommendations.
type Client struct {
	logger     *zap.Logger
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(logger *zap.Logger, cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	return &Client{
		logger:     logger,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		httpClient: cfg.HTTPClient,
	}
}

// Request/response envelopes for the generateContent endpoint.
type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// candidateRecommendation is the wire shape the model is instructed to
// return. Score is a pointer so a missing score is distinguishable from 0.
type candidateRecommendation struct {
	Title      string   `json:"title"`
	Reason     string   `json:"reason"`
	Date       string   `json:"date"`
	Department string   `json:"department"`
	Club       string   `json:"club"`
	Tags       []string `json:"tags"`
	Score      *int     `json:"score"`
}

// GetRecommendations makes a single generateContent call with the composed
// prompt and parses the generated text as the JSON contract. Any transport
// failure or contract violation returns an error; the raw offending payload
// is logged here since the caller only sees the error.
func (c *Client) GetRecommendations(ctx context.Context, interests string, events []*model.Event) ([]model.Recommendation, error) {
	prompt := BuildPrompt(interests, events)

	body, err := json.Marshal(generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshaling generateContent request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "building generateContent request")
	}
	req.Header.Set("Content-Type", "application/json")
	// The key travels in a header, never the URL: transport errors embed
	// the URL and get logged.
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling generative language API")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading generative language response")
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("generative language API returned an error status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", respBody),
		)
		return nil, errors.Errorf("generative language API returned status %d", resp.StatusCode)
	}

	var envelope generateContentResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		c.logger.Error("generative language response is not valid JSON", zap.ByteString("body", respBody))
		return nil, errors.Wrap(err, "decoding generateContent response")
	}

	text := extractText(envelope)
	if text == "" {
		c.logger.Error("no text output in model response", zap.ByteString("body", respBody))
		return nil, errors.New("no text output in model response")
	}

	recommendations, err := parseRecommendations(text)
	if err != nil {
		c.logger.Error("model output violates the recommendation contract",
			zap.String("output", text),
			zap.Error(err),
		)
		return nil, err
	}

	return recommendations, nil
}

func extractText(envelope generateContentResponse) string {
	if len(envelope.Candidates) == 0 {
		return ""
	}
	parts := envelope.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return ""
	}
	return parts[0].Text
}

// parseRecommendations enforces the output contract: a JSON array of
// candidate objects, each with a score in [0, 100]. A single bad candidate
// fails the whole response so callers never see partial or garbage objects.
func parseRecommendations(text string) ([]model.Recommendation, error) {
	var candidates []candidateRecommendation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &candidates); err != nil {
		return nil, errors.Wrap(err, "model output is not a JSON recommendation array")
	}

	recommendations := make([]model.Recommendation, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Score == nil {
			return nil, errors.Errorf("recommendation %q is missing a score", candidate.Title)
		}
		if *candidate.Score < 0 || *candidate.Score > 100 {
			return nil, errors.Errorf("recommendation %q has score %d outside [0, 100]", candidate.Title, *candidate.Score)
		}

		recommendations = append(recommendations, model.Recommendation{
			Title:      candidate.Title,
			Reason:     candidate.Reason,
			Date:       candidate.Date,
			Department: candidate.Department,
			Club:       candidate.Club,
			Tags:       candidate.Tags,
			Score:      *candidate.Score,
		})
	}

	return recommendations, nil
}
