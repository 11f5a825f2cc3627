// Package frost fetches station observations from the Frost time-series API.
package frost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/printobs/printobs/internal/catalog"
	"github.com/printobs/printobs/internal/models"
	"github.com/printobs/printobs/internal/timerange"
)

const (
	DefaultV0URL = "https://frost.met.no/observations/v0.jsonld"
	DefaultV1URL = "https://frost-prod.met.no/api/v1/obs/met.no/filter/get"

	maxErrorBody = 4 << 10
)

// Config holds the endpoints and credential used by the client.
type Config struct {
	V0URL    string
	V1URL    string
	ClientID string
}

// Client issues observation queries. It holds no per-request state.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. Empty endpoints fall back to the public ones.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.V0URL == "" {
		cfg.V0URL = DefaultV0URL
	}
	if cfg.V1URL == "" {
		cfg.V1URL = DefaultV1URL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient, logger: logger}
}

// Request describes one observation query: every catalog variable for one station.
type Request struct {
	Interval  timerange.Interval
	Station   models.StationSpec
	Variables *catalog.Variables
	Version   Version
	// TypeIDs overrides the station's instrument type filter when set.
	TypeIDs string
}

// Response is the raw success payload of a query.
type Response struct {
	Version Version
	URL     string
	Body    []byte
	Elapsed time.Duration
}

// Series flattens the payload with the parser matching its version.
func (r *Response) Series() ([]models.Series, error) {
	p, err := ParserFor(r.Version)
	if err != nil {
		return nil, err
	}
	return p.Parse(r.Body)
}

// Fetch runs the query in a single round trip.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	requestURL, err := c.BuildURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.cfg.ClientID != "" {
		httpReq.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientID)
	} else {
		c.logger.Warn("no Frost CLIENT_ID given, sending request without credentials")
	}

	c.logger.Debug("frost request", zap.String("url", requestURL))
	started := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Status, body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: requestURL, Err: fmt.Errorf("read body: %w", err)}
	}

	elapsed := time.Since(started)
	c.logger.Info("frost request done",
		zap.String("station", req.Station.Alias),
		zap.String("version", string(req.Version)),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", elapsed),
	)

	return &Response{Version: req.Version, URL: requestURL, Body: body, Elapsed: elapsed}, nil
}

// BuildURL renders the query for the request's API version.
func (c *Client) BuildURL(req Request) (string, error) {
	if req.Variables == nil || req.Variables.Len() == 0 {
		return "", fmt.Errorf("no variables to query")
	}
	elements := strings.Join(req.Variables.Names(), ",")
	period := req.Interval.FrostString()

	var (
		base   string
		params = url.Values{}
	)
	switch req.Version {
	case V0:
		base = c.cfg.V0URL
		params.Set("sources", v0Source(req.Station.StationID))
		params.Set("elements", elements)
		params.Set("referencetime", period)
		params.Set("timeoffsets", "default")
		params.Set("levels", "default")
	case V1:
		base = c.cfg.V1URL
		typeIDs := req.TypeIDs
		if typeIDs == "" {
			typeIDs = req.Station.TypeIDs
		}
		if typeIDs == "" {
			typeIDs = catalog.DefaultTypeIDs
		}
		params.Set("stationids", strings.TrimPrefix(req.Station.StationID, "SN"))
		params.Set("elementids", elements)
		params.Set("time", period)
		params.Set("levels", "all")
		params.Set("incobs", "true")
		params.Set("sensors", "all")
		params.Set("typeids", typeIDs)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownVersion, req.Version)
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid %s endpoint %q: %w", req.Version, base, err)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func v0Source(stationID string) string {
	if strings.HasPrefix(stationID, "SN") {
		return stationID
	}
	return "SN" + stationID
}

// errorMessage extracts the "error" member of an API error body, falling back to the status line.
func errorMessage(status string, body []byte) string {
	var payload struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Error) > 0 {
		var s string
		if err := json.Unmarshal(payload.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
			Reason  string `json:"reason"`
		}
		if err := json.Unmarshal(payload.Error, &obj); err == nil && obj.Message != "" {
			if obj.Reason != "" {
				return obj.Message + ": " + obj.Reason
			}
			return obj.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	return status + ": " + text
}
