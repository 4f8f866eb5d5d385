package contentblocks

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
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crmtools/brz2moe/internal/config"
	"github.com/crmtools/brz2moe/internal/models"
)

// Client talks to the content-block migration service, which lists Braze
// content blocks (full content included) and creates them on the MoEngage
// external content-block API. The service owns the Liquid-to-Jinja and CDN
// image conversion; the client passes block definitions through untouched.
type Client struct {
	baseURL         string
	dashboardNumber int
	braze           models.BrazeCredentials
	moengage        models.MoEngageCredentials
	blocks          models.ContentBlockCredentials
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewClient(
	cfg *config.ContentBlocksConfig,
	braze models.BrazeCredentials,
	moengage models.MoEngageCredentials,
	timeout time.Duration,
	logger *slog.Logger,
) (*Client, error) {
	if cfg.ServiceURL == "" {
		return nil, fmt.Errorf("content block service URL is required")
	}

	dashboardNumber := cfg.DashboardNumber
	if dashboardNumber == 0 {
		dashboardNumber = 9
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.ServiceURL, "/"),
		dashboardNumber: dashboardNumber,
		braze:           braze,
		moengage:        moengage,
		blocks:          cfg.Credentials,
		httpClient:      &http.Client{Timeout: timeout},
		logger:          logger,
	}, nil
}

// TestConnection checks that the content-block service is reachable.
func (c *Client) TestConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("content block service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content block service unhealthy: %s", resp.Status)
	}

	return nil
}

// List retrieves every content block from Braze, full content included.
// Only the session credentials are needed; the MoEngage credentials are
// checked at migration time.
func (c *Client) List(ctx context.Context) ([]models.ContentBlock, error) {
	if c.braze.SessionID == "" {
		return nil, &MigrateError{Reason: MigrateErrCredentials, Detail: "session_id"}
	}
	if c.braze.AppGroupID == "" {
		return nil, &MigrateError{Reason: MigrateErrCredentials, Detail: "app_group_id"}
	}

	endpoint, err := url.Parse(c.baseURL + "/braze/content-blocks")
	if err != nil {
		return nil, fmt.Errorf("invalid content block service URL: %w", err)
	}

	query := endpoint.Query()
	query.Set("session_id", c.braze.SessionID)
	query.Set("app_group_id", c.braze.AppGroupID)
	query.Set("dashboard_number", strconv.Itoa(c.dashboardNumber))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build list request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &MigrateError{Reason: MigrateErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read list response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &MigrateError{Reason: MigrateErrRemote, Detail: remoteDetail(body, resp.Status)}
	}

	var parsed struct {
		ContentBlocks []map[string]any `json:"content_blocks"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode content block list: %w", err)
	}

	blocks := make([]models.ContentBlock, 0, len(parsed.ContentBlocks))
	for _, raw := range parsed.ContentBlocks {
		blocks = append(blocks, models.ContentBlock{Raw: raw})
	}

	c.logger.Info("Fetched content block list", "count", len(blocks))
	return blocks, nil
}

// migrateRequest is the envelope the migration service expects. Both
// credential sets travel in the body; the service authenticates against
// MoEngage itself.
type migrateRequest struct {
	Braze        brazeEnvelope    `json:"braze_credentials"`
	MoEngage     moengageEnvelope `json:"moengage_credentials"`
	ContentBlock map[string]any   `json:"content_block"`
}

type brazeEnvelope struct {
	SessionID       string `json:"session_id"`
	AppGroupID      string `json:"app_group_id"`
	DashboardNumber int    `json:"dashboard_number"`
}

type moengageEnvelope struct {
	AppKey         string `json:"app_key"`
	AppSecret      string `json:"app_secret"`
	APIURL         string `json:"api_url"`
	CreatedByEmail string `json:"created_by_email"`
	BearerToken    string `json:"bearer_token"`
	RefreshToken   string `json:"refresh_token"`
	Origin         string `json:"origin"`
	DataCenter     string `json:"data_center"`
}

// Result is the migration service's answer for one content block.
type Result struct {
	Message  string         `json:"message"`
	Response map[string]any `json:"response,omitempty"`
}

// Migrate submits one content block for creation on MoEngage. Credentials
// are checked before any network call.
func (c *Client) Migrate(ctx context.Context, block models.ContentBlock) (*Result, error) {
	if field := c.blocks.MissingField(); field != "" {
		return nil, &MigrateError{BlockName: block.Name(), Reason: MigrateErrCredentials, Detail: field}
	}

	c.logger.Debug("Migrating content block", "block", block.Name())

	payload := migrateRequest{
		Braze: brazeEnvelope{
			SessionID:       c.braze.SessionID,
			AppGroupID:      c.braze.AppGroupID,
			DashboardNumber: c.dashboardNumber,
		},
		MoEngage: moengageEnvelope{
			AppKey:         c.blocks.AppKey,
			AppSecret:      c.blocks.AppSecret,
			APIURL:         c.blocks.APIURL,
			CreatedByEmail: c.blocks.CreatedByEmail,
			BearerToken:    c.moengage.BearerToken,
			RefreshToken:   c.moengage.RefreshToken,
			Origin:         c.moengage.Origin,
			DataCenter:     c.blocks.DataCenter,
		},
		ContentBlock: block.Raw,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content block request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/migrate-content-block", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build content block request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &MigrateError{BlockName: block.Name(), Reason: MigrateErrTimeout, Err: err}
		}
		return nil, &MigrateError{BlockName: block.Name(), Reason: MigrateErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content block response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &MigrateError{
			BlockName: block.Name(),
			Reason:    MigrateErrRemote,
			Detail:    remoteDetail(respBody, resp.Status),
		}
	}

	result := &Result{}
	var parsed struct {
		Message          string         `json:"message"`
		MoEngageResponse map[string]any `json:"moengage_response"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil {
		result.Message = parsed.Message
		result.Response = parsed.MoEngageResponse
	}

	c.logger.Info("Content block migrated", "block", block.Name())
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// remoteDetail prefers the service's explanation over the raw status line.
// The migration service nests failure details under "detail", either as a
// string or as an object carrying a "message".
func remoteDetail(body []byte, status string) string {
	var parsed struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if len(parsed.Detail) > 0 {
			var text string
			if json.Unmarshal(parsed.Detail, &text) == nil && text != "" {
				return text
			}
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(parsed.Detail, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return status
}
