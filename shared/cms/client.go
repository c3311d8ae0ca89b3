package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ablaqll/pmpk-website-sub000/shared/apperrors"
	"github.com/ablaqll/pmpk-website-sub000/shared/config"
	"github.com/ablaqll/pmpk-website-sub000/shared/utils"
)

// Client is a read-only query client for the hosted structured-content
// service. Requests go through a circuit breaker so an outage degrades
// content.get instead of stalling every request.
type Client struct {
	baseURL    string
	dataset    string
	apiVersion string
	token      string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
}

func NewClient(cfg config.CMSConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		dataset:    cfg.Dataset,
		apiVersion: strings.TrimPrefix(cfg.APIVersion, "v"),
		token:      cfg.Token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: utils.NewCircuitBreaker("cms", 5, 30*time.Second),
	}
}

type queryResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Description string `json:"description"`
	} `json:"error,omitempty"`
}

// Query runs a GROQ query and returns its raw result. Params are bound as
// $name variables.
func (c *Client) Query(ctx context.Context, query string, params map[string]any) (json.RawMessage, error) {
	values := url.Values{}
	values.Set("query", query)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, apperrors.Validation(fmt.Sprintf("invalid query parameter %s", name))
		}
		values.Set("$"+name, string(encoded))
	}
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s?%s", c.baseURL, c.apiVersion, url.PathEscape(c.dataset), values.Encode())

	var result json.RawMessage
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("cms request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return fmt.Errorf("failed to read cms response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("cms returned status %d", resp.StatusCode)
		}

		var decoded queryResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("failed to decode cms response: %w", err)
		}
		if decoded.Error != nil {
			return fmt.Errorf("cms query error: %s", decoded.Error.Description)
		}
		result = decoded.Result
		return nil
	})
	if err != nil {
		if errors.Is(err, utils.ErrCircuitOpen) {
			return nil, apperrors.Unavailable("Content service is temporarily unavailable", err)
		}
		return nil, apperrors.Unavailable("Content service request failed", err)
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return result, nil
}

// HealthCheck pings the query endpoint with a trivial query
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Query(ctx, "count(*[_type == 'sanity.imageAsset'][0...1])", nil)
	return err
}

// State reports the breaker state for the health endpoint
func (c *Client) State() utils.CircuitState {
	return c.breaker.GetState()
}
