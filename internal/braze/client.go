package braze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crmtools/brz2moe/internal/config"
	"github.com/crmtools/brz2moe/internal/models"
)

// Client talks to the Braze campaign fetcher service, which proxies the
// Braze dashboard-session API.
type Client struct {
	baseURL     string
	credentials models.BrazeCredentials
	httpClient  *http.Client
	logger      *slog.Logger
}

// ListFilters narrows the campaign listing. Zero values mean no filter.
type ListFilters struct {
	Type         models.CampaignType
	Status       string
	NameContains string
}

func NewClient(cfg *config.BrazeConfig, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if cfg.FetcherURL == "" {
		return nil, fmt.Errorf("braze fetcher URL is required")
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.FetcherURL, "/"),
		credentials: cfg.Credentials,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// TestConnection checks that the fetcher service is reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	c.logger.Info("Testing Braze fetcher connection...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connection test failed: %s", resp.Status)
	}

	c.logger.Info("Braze fetcher connection successful")
	return nil
}

// FetchCampaign retrieves the full definition of one campaign. Credentials
// are checked before any network call.
func (c *Client) FetchCampaign(ctx context.Context, campaignID string) (*models.CampaignDetail, error) {
	if field := c.credentials.MissingField(); field != "" {
		return nil, &FetchError{
			CampaignID: campaignID,
			Kind:       FetchErrCredentials,
			Detail:     field,
		}
	}

	c.logger.Debug("Fetching campaign details", "campaign", campaignID)

	endpoint := fmt.Sprintf("%s/campaigns/%s/", c.baseURL, url.PathEscape(campaignID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build fetch request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{CampaignID: campaignID, Kind: FetchErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read fetch response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			CampaignID: campaignID,
			Kind:       FetchErrRemote,
			Detail:     remoteDetail(body, resp.Status),
		}
	}

	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode campaign %s: %w", campaignID, err)
	}

	c.logger.Debug("Campaign details fetched", "campaign", campaignID)
	return &models.CampaignDetail{Raw: raw}, nil
}

// ListCampaigns retrieves campaign summaries, optionally filtered.
func (c *Client) ListCampaigns(ctx context.Context, filters ListFilters) ([]models.CampaignRef, error) {
	if field := c.credentials.MissingField(); field != "" {
		return nil, &FetchError{Kind: FetchErrCredentials, Detail: field}
	}

	endpoint, err := url.Parse(c.baseURL + "/campaigns/")
	if err != nil {
		return nil, fmt.Errorf("invalid fetcher URL: %w", err)
	}

	query := endpoint.Query()
	if filters.Type != "" {
		query.Set("campaign_type", string(filters.Type))
	}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if filters.NameContains != "" {
		query.Set("name_contains", filters.NameContains)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FetchErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Kind: FetchErrRemote, Detail: remoteDetail(body, resp.Status)}
	}

	var summaries []campaignSummary
	if err := json.Unmarshal(body, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode campaign list: %w", err)
	}

	refs := make([]models.CampaignRef, 0, len(summaries))
	for _, s := range summaries {
		refs = append(refs, models.CampaignRef{
			ID:             s.ID,
			Name:           s.Name,
			Type:           models.ParseCampaignType(s.Type),
			Status:         s.Status,
			VariationCount: s.VariationCount,
		})
	}

	c.logger.Info("Fetched campaign list", "count", len(refs))
	return refs, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("X-Dashboard-Url", c.credentials.DashboardURL)
	req.Header.Set("X-Session-Id", c.credentials.SessionID)
	req.Header.Set("X-App-Group-Id", c.credentials.AppGroupID)
	req.Header.Set("Content-Type", "application/json")
}

type campaignSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	VariationCount int    `json:"variation_count"`
}

// remoteDetail prefers the service's detail text over the raw status line.
func remoteDetail(body []byte, status string) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return status
}
