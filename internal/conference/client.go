// Package conference is a thin client for the external conferencing backend.
// Every call is an independently authenticated signed GET: the call name plus
// its encoded query string plus a shared secret is SHA-1 hashed and appended
// as a checksum parameter. Responses are small XML envelopes.
package conference

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds conferencing backend connection settings
type Config struct {
	BaseURL    string
	Secret     string
	Timeout    time.Duration
	MaxRetries int
}

// IsConfigured returns true if the required connection settings are provided
func (c Config) IsConfigured() bool {
	return c.BaseURL != "" && c.Secret != ""
}

// Client issues signed requests to the conferencing backend. It is stateless;
// a single instance is shared by all callers.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a conferencing client from config
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Config returns the client's settings
func (c *Client) Config() Config {
	return c.cfg
}

// CreateRequest holds the parameters for provisioning a remote session
type CreateRequest struct {
	MeetingID   string
	Name        string
	AttendeePW  string
	ModeratorPW string
	Duration    int // minutes, advisory for the remote side
}

// CreateResponse echoes the provisioned session identity
type CreateResponse struct {
	MeetingID string
}

// envelope is the XML response body shared by all calls
type envelope struct {
	XMLName    xml.Name `xml:"response"`
	ReturnCode string   `xml:"returncode"`
	MessageKey string   `xml:"messageKey"`
	Message    string   `xml:"message"`
	MeetingID  string   `xml:"meetingID"`
	Running    string   `xml:"running"`
}

func (e envelope) succeeded() bool {
	return e.ReturnCode == "SUCCESS"
}

// Create provisions a remote session. The returned meeting ID is either
// provider-assigned or an echo of the requested one.
func (c *Client) Create(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	params := url.Values{}
	params.Set("meetingID", req.MeetingID)
	params.Set("name", req.Name)
	params.Set("attendeePW", req.AttendeePW)
	params.Set("moderatorPW", req.ModeratorPW)
	if req.Duration > 0 {
		params.Set("duration", fmt.Sprintf("%d", req.Duration))
	}

	env, err := c.doWithRetry(ctx, "create", params)
	if err != nil {
		return CreateResponse{}, err
	}
	if !env.succeeded() {
		return CreateResponse{}, fmt.Errorf("create rejected by conference server: %s (%s)", env.Message, env.MessageKey)
	}
	id := env.MeetingID
	if id == "" {
		id = req.MeetingID
	}
	return CreateResponse{MeetingID: id}, nil
}

// IsRunning asks the backend whether the remote session is currently live
func (c *Client) IsRunning(ctx context.Context, meetingID string) (bool, error) {
	params := url.Values{}
	params.Set("meetingID", meetingID)

	env, err := c.doWithRetry(ctx, "isMeetingRunning", params)
	if err != nil {
		return false, err
	}
	if !env.succeeded() {
		return false, fmt.Errorf("isMeetingRunning rejected by conference server: %s (%s)", env.Message, env.MessageKey)
	}
	return strings.EqualFold(env.Running, "true"), nil
}

// End terminates the remote session
func (c *Client) End(ctx context.Context, meetingID, moderatorPW string) error {
	params := url.Values{}
	params.Set("meetingID", meetingID)
	params.Set("password", moderatorPW)

	env, err := c.doWithRetry(ctx, "end", params)
	if err != nil {
		return err
	}
	if !env.succeeded() {
		return fmt.Errorf("end rejected by conference server: %s (%s)", env.Message, env.MessageKey)
	}
	return nil
}

// JoinURL builds a signed join link for one attendee. Pure URL construction,
// no network call; the role-scoped password decides moderator vs attendee.
func (c *Client) JoinURL(meetingID, fullName, password string) string {
	params := url.Values{}
	params.Set("meetingID", meetingID)
	params.Set("fullName", fullName)
	params.Set("password", password)
	return c.signedURL("join", params)
}

func (c *Client) signedURL(action string, params url.Values) string {
	query := params.Encode()
	checksum := c.checksum(action, query)
	return fmt.Sprintf("%s/api/%s?%s&checksum=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), action, query, checksum)
}

func (c *Client) checksum(action, query string) string {
	sum := sha1.Sum([]byte(action + query + c.cfg.Secret))
	return hex.EncodeToString(sum[:])
}

// doWithRetry performs a signed GET with per-attempt timeout and exponential
// backoff so call sites read as straight-line code. Retries stop as soon as
// the context is done.
func (c *Client) doWithRetry(ctx context.Context, action string, params url.Values) (envelope, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return envelope{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		env, err := c.do(ctx, action, params)
		if err == nil {
			return env, nil
		}
		lastErr = err
	}
	return envelope{}, fmt.Errorf("%s failed after %d attempts: %w", action, c.cfg.MaxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, action string, params url.Values) (envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.signedURL(action, params), nil)
	if err != nil {
		return envelope{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return envelope{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return envelope{}, fmt.Errorf("conference server returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return envelope{}, err
	}

	var env envelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return envelope{}, fmt.Errorf("malformed conference response: %w", err)
	}
	return env, nil
}
