// Package feed fetches tuition rate records from the system-of-record API.
//
// The feed exposes two endpoints:
//
//	GET <base>?academic_year=<year>[&client_id=..&client_secret=..]  -> JSON array
//	GET <base>/<id>[?client_id=..&client_secret=..]                  -> JSON object
//
// Failures are classified as ErrUnavailable (transport, timeout, non-200)
// or ErrMalformed (body is not the expected JSON). The client never retries;
// retry is a scheduling concern.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/tuition/internal/rate"
)

// DefaultTimeout bounds a single feed request.
const DefaultTimeout = 60 * time.Second

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 64 << 20

var (
	// ErrUnavailable covers network errors, timeouts and non-200 responses.
	ErrUnavailable = errors.New("feed unavailable")

	// ErrMalformed covers bodies that are not the expected JSON shape.
	ErrMalformed = errors.New("feed malformed")
)

// Config holds the connection settings for a Client.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client fetches rate records over HTTP.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Client. A zero Timeout uses DefaultTimeout.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Batch is the decoded result of a year fetch. Elements of the array that
// could not be decoded are reported in Malformed and left out of Records.
// MalformedIDs holds the ids still readable from those elements.
type Batch struct {
	Records      []rate.FeedRecord
	Malformed    []error
	MalformedIDs []string
}

// FetchYear fetches every rate record of one academic year.
func (c *Client) FetchYear(ctx context.Context, academicYear string) (Batch, error) {
	q := url.Values{}
	q.Set("academic_year", academicYear)
	c.addCredentials(q)

	body, err := c.get(ctx, c.cfg.BaseURL+"?"+q.Encode())
	if err != nil {
		return Batch{}, fmt.Errorf("fetch year %s: %w", academicYear, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		return Batch{}, fmt.Errorf("fetch year %s: %w: %v", academicYear, ErrMalformed, err)
	}

	batch := Batch{Records: make([]rate.FeedRecord, 0, len(elems))}
	for i, raw := range elems {
		var rec rate.FeedRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			batch.Malformed = append(batch.Malformed, fmt.Errorf("%w: element %d: %v", ErrMalformed, i, err))
			var idOnly struct {
				ID rate.Text `json:"id"`
			}
			if json.Unmarshal(raw, &idOnly) == nil && idOnly.ID.Truthy() {
				batch.MalformedIDs = append(batch.MalformedIDs, idOnly.ID.String())
			}
			continue
		}
		batch.Records = append(batch.Records, rec)
	}
	return batch, nil
}

// FetchRecord fetches a single record by external id.
func (c *Client) FetchRecord(ctx context.Context, externalID string) (rate.FeedRecord, error) {
	target := c.cfg.BaseURL + "/" + url.PathEscape(externalID)
	q := url.Values{}
	c.addCredentials(q)
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	body, err := c.get(ctx, target)
	if err != nil {
		return rate.FeedRecord{}, fmt.Errorf("fetch record %s: %w", externalID, err)
	}

	var rec rate.FeedRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return rate.FeedRecord{}, fmt.Errorf("fetch record %s: %w: %v", externalID, ErrMalformed, err)
	}
	return rec, nil
}

// addCredentials appends client credentials when both are configured. A
// client id without a secret is a configuration error; the request still
// goes out unauthenticated.
func (c *Client) addCredentials(q url.Values) {
	switch {
	case c.cfg.ClientID != "" && c.cfg.ClientSecret != "":
		q.Set("client_id", c.cfg.ClientID)
		q.Set("client_secret", c.cfg.ClientSecret)
	case c.cfg.ClientID != "":
		slog.Error("feed client secret missing, sending unauthenticated request", "client_id", c.cfg.ClientID)
	}
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	slog.Debug("feed request", "url", redact(target))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, redactErr(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, snippet(body))
	}
	return bytes.TrimSpace(body), nil
}

// redact strips the query string so secrets never reach the logs.
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}

func redactErr(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s %s: %v", ue.Op, redact(ue.URL), ue.Err)
	}
	return err
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
