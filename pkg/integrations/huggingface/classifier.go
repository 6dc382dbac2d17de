package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/flowbaker/signalwatch/pkg/domain"
	sighttp "github.com/flowbaker/signalwatch/pkg/integrations/http"
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModel   = "facebook/bart-large-mnli"
)

// DefaultLabels maps the zero-shot candidate labels onto classifications.
var DefaultLabels = map[string]domain.Classification{
	"buy stocks":  domain.ClassificationBullish,
	"sell stocks": domain.ClassificationBearish,
	"neutral":     domain.ClassificationNeutral,
}

// Classifier runs zero-shot classification on the Hugging Face inference API.
type Classifier struct {
	client  *http.Client
	baseURL string
	model   string
	labels  map[string]domain.Classification
}

type ClassifierDependencies struct {
	APIToken string
	BaseURL  string
	Model    string
	Labels   map[string]domain.Classification
	Timeout  time.Duration
}

func New(deps ClassifierDependencies) (*Classifier, error) {
	if deps.APIToken == "" {
		return nil, fmt.Errorf("%w: HF_API_TOKEN", domain.ErrMissingConfig)
	}

	if deps.Timeout == 0 {
		deps.Timeout = 30 * time.Second
	}

	client, err := sighttp.NewClient(sighttp.ClientConfig{
		AuthType:    sighttp.AuthType_Bearer,
		BearerToken: deps.APIToken,
		Headers:     map[string]string{"Content-Type": "application/json"},
		Timeout:     deps.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hugging face client: %w", err)
	}

	c := &Classifier{
		client:  client,
		baseURL: strings.TrimRight(deps.BaseURL, "/"),
		model:   deps.Model,
		labels:  deps.Labels,
	}

	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if len(c.labels) == 0 {
		c.labels = DefaultLabels
	}

	return c, nil
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

// legacy pipeline response
type zeroShotResponse struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// router response
type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.Verdict, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: c.candidateLabels()},
	})
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("hugging face request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.Verdict{}, fmt.Errorf("hugging face api %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	label, score, err := topLabel(respBody)
	if err != nil {
		return domain.Verdict{}, err
	}

	classification, ok := c.labels[label]
	if !ok {
		return domain.Verdict{}, fmt.Errorf("%w: unknown label %q", domain.ErrNoClassification, label)
	}

	return domain.Verdict{
		Classification: classification,
		Explanation:    fmt.Sprintf("zero-shot label %q (score %.2f)", label, score),
		Confidence:     score,
		Model:          "huggingface:" + c.model,
	}, nil
}

func (c *Classifier) candidateLabels() []string {
	labels := make([]string, 0, len(c.labels))
	for _, l := range []string{"buy stocks", "sell stocks", "neutral"} {
		if _, ok := c.labels[l]; ok {
			labels = append(labels, l)
		}
	}

	for l := range c.labels {
		if _, known := DefaultLabels[l]; !known {
			labels = append(labels, l)
		}
	}

	return labels
}

func topLabel(body []byte) (string, float64, error) {
	var legacy zeroShotResponse
	if err := json.Unmarshal(body, &legacy); err == nil && len(legacy.Labels) > 0 {
		score := 0.0
		if len(legacy.Scores) > 0 {
			score = legacy.Scores[0]
		}
		return legacy.Labels[0], score, nil
	}

	var scored []labelScore
	if err := json.Unmarshal(body, &scored); err == nil && len(scored) > 0 {
		best := scored[0]
		for _, s := range scored[1:] {
			if s.Score > best.Score {
				best = s
			}
		}
		return best.Label, best.Score, nil
	}

	return "", 0, fmt.Errorf("%w: unexpected response %s", domain.ErrNoClassification, truncate(string(body), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
