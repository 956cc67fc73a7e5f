package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wonny/overnight/internal/contracts"
	"github.com/wonny/overnight/pkg/config"
	"github.com/wonny/overnight/pkg/httputil"
	"github.com/wonny/overnight/pkg/logger"
)

// Client talks to the model scoring service. The model itself is a black box:
// it returns a ranked candidate list with probabilities and reference closes,
// or fails, or returns nothing. All three are handled upstream without
// touching the ledger.
type Client struct {
	httpClient *httputil.Client
	baseURL    string
	logger     *logger.Logger
}

// New creates a scorer client.
func New(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httputil.New(log, cfg.Scorer.Timeout),
		baseURL:    strings.TrimRight(cfg.Scorer.BaseURL, "/"),
		logger:     log,
	}
}

type scoreResponse struct {
	Candidates []contracts.Candidate `json:"candidates"`
}

// ScoreCandidates fetches today's ranked candidate list.
func (c *Client) ScoreCandidates(ctx context.Context) ([]contracts.Candidate, error) {
	resp, err := c.httpClient.Get(ctx, c.baseURL+"/v1/candidates")
	if err != nil {
		return nil, fmt.Errorf("scorer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scorer returned status %d", resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode scorer response: %w", err)
	}

	c.logger.WithField("candidates", len(body.Candidates)).Debug("Scored candidates")
	return body.Candidates, nil
}
