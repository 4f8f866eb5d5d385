package moengage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/crmtools/brz2moe/internal/config"
	"github.com/crmtools/brz2moe/internal/models"
)

// Client routes fetched campaigns to the MoEngage migration services. Each
// channel has its own draft-creation service; push and multi-channel
// campaigns share the push service.
type Client struct {
	emailURL    string
	pushURL     string
	smsURL      string
	credentials models.MoEngageCredentials
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg *config.MoEngageConfig, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if cfg.Credentials.BearerToken == "" {
		return nil, fmt.Errorf("MoEngage bearer token is required")
	}

	if cfg.Credentials.RefreshToken == "" {
		return nil, fmt.Errorf("MoEngage refresh token is required")
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		emailURL:    strings.TrimRight(cfg.EmailServiceURL, "/"),
		pushURL:     strings.TrimRight(cfg.PushServiceURL, "/"),
		smsURL:      strings.TrimRight(cfg.SMSServiceURL, "/"),
		credentials: cfg.Credentials,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// envelope is the request body shared by all three migration services.
type envelope struct {
	Campaign    map[string]any      `json:"campaign"`
	Credentials credentialsEnvelope `json:"moengage_credentials"`
}

type credentialsEnvelope struct {
	BearerToken  string `json:"bearer_token"`
	RefreshToken string `json:"refresh_token"`
	Origin       string `json:"origin"`
	APIURL       string `json:"api_url"`
}

type serviceResponse struct {
	Message           string   `json:"message"`
	DraftCreated      *bool    `json:"draft_created,omitempty"`
	PlatformsDetected []string `json:"platforms_detected,omitempty"`
	MoEngageResponse  *struct {
		CampaignID string `json:"campaign_id"`
	} `json:"moengage_response,omitempty"`
}

// Dispatch submits a fetched campaign to the service matching its type and
// returns the created draft metadata.
func (c *Client) Dispatch(ctx context.Context, detail *models.CampaignDetail, campaignType models.CampaignType) (*models.DispatchResult, error) {
	endpoint, err := c.endpointFor(campaignType)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Dispatching campaign draft", "type", campaignType, "endpoint", endpoint)

	payload := envelope{
		Campaign: detail.Payload(),
		Credentials: credentialsEnvelope{
			BearerToken:  c.credentials.BearerToken,
			RefreshToken: c.credentials.RefreshToken,
			Origin:       c.credentials.Origin,
			APIURL:       c.credentials.APIURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal migration request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build migration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &DispatchError{CampaignType: campaignType, Reason: DispatchErrTimeout, Err: err}
		}
		return nil, &DispatchError{CampaignType: campaignType, Reason: DispatchErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &DispatchError{
			CampaignType: campaignType,
			Reason:       DispatchErrRemote,
			Detail:       remoteDetail(respBody, resp.Status),
		}
	}

	result := c.parseResponse(respBody, campaignType)
	if result.DraftID != "" {
		c.logger.Info("Draft created in MoEngage", "type", campaignType, "draft", result.DraftID)
	} else {
		c.logger.Info("Migration service accepted campaign", "type", campaignType)
	}

	return result, nil
}

// TestConnection pings the health endpoint of every migration service.
func (c *Client) TestConnection(ctx context.Context) error {
	c.logger.Info("Testing MoEngage migration services...")

	services := map[string]string{
		"email": c.emailURL,
		"push":  c.pushURL,
		"sms":   c.smsURL,
	}

	for name, base := range services {
		if base == "" {
			continue
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
		if err != nil {
			return fmt.Errorf("failed to build %s health request: %w", name, err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s migration service unreachable: %w", name, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%s migration service unhealthy: %s", name, resp.Status)
		}
	}

	c.logger.Info("All migration services reachable")
	return nil
}

func (c *Client) endpointFor(campaignType models.CampaignType) (string, error) {
	switch campaignType {
	case models.TypeEmail:
		return c.emailURL + "/v1/migrate-campaign", nil
	case models.TypePush, models.TypeMulti:
		return c.pushURL + "/v1/migrate-push-campaign", nil
	case models.TypeSMS:
		return c.smsURL + "/v1/migrate-sms-campaign", nil
	default:
		return "", &DispatchError{CampaignType: campaignType, Reason: DispatchErrUnsupportedType}
	}
}

func (c *Client) parseResponse(body []byte, campaignType models.CampaignType) *models.DispatchResult {
	result := &models.DispatchResult{DraftCreated: true}

	var parsed serviceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// A success status with an unparseable body still counts; the draft
		// id is just unavailable for logging.
		c.logger.Warn("Could not decode migration service response", "type", campaignType, "error", err)
		return result
	}

	result.Message = parsed.Message
	if parsed.DraftCreated != nil {
		result.DraftCreated = *parsed.DraftCreated
	}
	result.PlatformsDetected = parsed.PlatformsDetected
	if parsed.MoEngageResponse != nil {
		result.DraftID = parsed.MoEngageResponse.CampaignID
	}

	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err == nil {
		result.Body = raw
	}

	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

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
