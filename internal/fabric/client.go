package fabric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/astlabs/run-portal/internal/config"
)

// Scope requested during the client-credentials exchange.
const tokenScope = "https://api.fabric.microsoft.com/.default"

var (
	jobInstancePattern  = regexp.MustCompile(`/jobs/instances/([^/]+)$`)
	jobWorkspacePattern = regexp.MustCompile(`/workspaces/([^/]+)/`)
)

// MalformedResponseError reports a job-API response whose Location header
// is absent or does not carry the expected identifiers.
type MalformedResponseError struct {
	Location string
}

func (e *MalformedResponseError) Error() string {
	if e.Location == "" {
		return "job API response missing Location header"
	}
	return fmt.Sprintf("job API Location header has unexpected format: %q", e.Location)
}

// JobLocation is the parsed form of the job API's Location header.
type JobLocation struct {
	Location       string
	JobInstanceID  string
	JobWorkspaceID string
}

// ParseJobLocation extracts the job-instance and job-workspace identifiers
// from a Location header value.
func ParseJobLocation(location string) (JobLocation, error) {
	if location == "" {
		return JobLocation{}, &MalformedResponseError{}
	}
	instance := jobInstancePattern.FindStringSubmatch(location)
	workspace := jobWorkspacePattern.FindStringSubmatch(location)
	if instance == nil || workspace == nil {
		return JobLocation{}, &MalformedResponseError{Location: location}
	}
	return JobLocation{
		Location:       location,
		JobInstanceID:  instance[1],
		JobWorkspaceID: workspace[1],
	}, nil
}

// Param is a type-tagged notebook parameter value.
type Param struct {
	Value any    `json:"value"`
	Type  string `json:"type"`
}

// FormatParams tags each parameter with its notebook-side type. JSON
// numbers arrive as float64; integral values are tagged int. Compound
// values are serialized to JSON and passed as strings.
func FormatParams(params map[string]any) map[string]Param {
	out := make(map[string]Param, len(params))
	for key, value := range params {
		out[key] = formatParam(value)
	}
	return out
}

func formatParam(value any) Param {
	switch v := value.(type) {
	case bool:
		return Param{Value: v, Type: "bool"}
	case int:
		return Param{Value: v, Type: "int"}
	case int64:
		return Param{Value: v, Type: "int"}
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return Param{Value: v, Type: "int"}
		}
		return Param{Value: v, Type: "float"}
	case string:
		return Param{Value: v, Type: "string"}
	case nil:
		return Param{Value: "", Type: "string"}
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return Param{Value: fmt.Sprint(v), Type: "string"}
		}
		return Param{Value: string(encoded), Type: "string"}
	}
}

// SubmitResult carries the parsed job identifiers plus the raw response
// body the job API returned.
type SubmitResult struct {
	JobLocation
	RawBody []byte
}

// Client submits notebook runs to the job-execution API. Each submission
// performs a fresh token exchange followed by one job request; neither step
// is retried.
type Client struct {
	cfg        config.FabricConfig
	creds      *clientcredentials.Config
	httpClient *http.Client
}

// NewClient validates the service-principal credentials and target
// identifiers up front.
func NewClient(cfg config.FabricConfig) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TenantID == "" {
		return nil, fmt.Errorf("missing service principal credentials")
	}
	if cfg.WorkspaceID == "" || cfg.NotebookID == "" {
		return nil, fmt.Errorf("workspace ID or notebook ID is not set")
	}
	return &Client{
		cfg: cfg,
		creds: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", cfg.LoginBaseURL, cfg.TenantID),
			Scopes:       []string{tokenScope},
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// RunNotebook performs the token exchange and submits the notebook job.
func (c *Client) RunNotebook(ctx context.Context, params map[string]any) (SubmitResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("acquire access token: %w", err)
	}

	payload := map[string]any{
		"executionData": map[string]any{
			"parameters": FormatParams(params),
			"configuration": map[string]any{
				"useStarterPool": false,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode job request: %w", err)
	}

	url := fmt.Sprintf("%s/workspaces/%s/items/%s/jobs/instances?jobType=RunNotebook",
		c.cfg.APIBaseURL, c.cfg.WorkspaceID, c.cfg.NotebookID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("job API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SubmitResult{}, fmt.Errorf("job API request failed: %s", resp.Status)
	}

	loc, err := ParseJobLocation(resp.Header.Get("Location"))
	if err != nil {
		return SubmitResult{}, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("read job API response: %w", err)
	}
	return SubmitResult{JobLocation: loc, RawBody: raw}, nil
}

// accessToken exchanges the service-principal credentials for a bearer
// token via the client-credentials grant.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.creds.Token(ctx)
	if err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("no access token received from identity provider")
	}
	return token.AccessToken, nil
}
