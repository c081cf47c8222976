package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/quantitva/market-intel/config"
	"github.com/quantitva/market-intel/errors"
	"github.com/quantitva/market-intel/internal/httpclient"
	"github.com/quantitva/market-intel/internal/util"
	"github.com/quantitva/market-intel/logger"
)

// Relay failure kinds. Handlers map all three to an upstream-failure
// response but report the kind so operators can tell a dead endpoint from
// a rejecting one.
const (
	FailureNetwork    = "network"    // request never completed
	FailureStatus     = "status"     // endpoint answered with a non-2xx status
	FailureUnparsable = "unparsable" // endpoint answered 2xx with an unusable body
)

// RelayError describes a failed relay attempt.
type RelayError struct {
	Kind       string // one of the Failure* constants
	StatusCode int    // set for FailureStatus
	cause      error
}

func (e *RelayError) Error() string {
	switch e.Kind {
	case FailureStatus:
		return fmt.Sprintf("webhook relay failed: endpoint returned status %d", e.StatusCode)
	case FailureUnparsable:
		return "webhook relay failed: unusable response body"
	default:
		return fmt.Sprintf("webhook relay failed: %v", e.cause)
	}
}

func (e *RelayError) Unwrap() error { return e.cause }

// Request is the research payload submitted to an engine endpoint.
type Request struct {
	MarketCategory string `json:"marketCategory"`
	SubNiche       string `json:"subNiche"`
	Geography      string `json:"geography,omitempty"`
	Email          string `json:"email"`
	Notes          string `json:"notes,omitempty"`
	Frequency      string `json:"frequency,omitempty"`

	// Stamped by the relay before sending
	SubmittedAt  string `json:"submittedAt,omitempty"`
	WebhookName  string `json:"webhookName,omitempty"`
	ResearchType string `json:"researchType,omitempty"`
	IsInitialRun *bool  `json:"isInitialRun,omitempty"`
}

// Report is what an engine endpoint returns for a research request.
// Endpoints answer with a JSON object, a JSON array whose first element is
// the object, or plain text; plain text becomes the web report as-is.
type Report struct {
	WebReport   string `json:"webReport"`
	EmailReport string `json:"emailReport"`
}

// Relay submits research requests to webhook endpoints. One process-wide
// rate limiter covers all endpoints; engine providers throttle aggressively
// and a burst of retries gets every subsequent call rejected.
type Relay struct {
	client  *httpclient.SaferClient
	limiter *rate.Limiter
}

// NewRelay creates a relay from config.
func NewRelay(cfg config.RelayConfig) *Relay {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	client := httpclient.NewWithOptions(timeout, httpclient.Options{
		BlockPrivateIP: util.Ptr(!cfg.AllowPrivateHosts),
	})
	return &Relay{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Send posts req to the webhook and returns the report it produced.
// Failures come back as *RelayError.
func (r *Relay) Send(ctx context.Context, hook *Config, req *Request) (*Report, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &RelayError{Kind: FailureNetwork, cause: err}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	req.SubmittedAt = now
	req.WebhookName = hook.Name
	req.ResearchType = hook.Type
	if hook.Type == TypeRecurring && req.IsInitialRun == nil {
		req.IsInitialRun = util.Ptr(true)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode relay payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build relay request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logger.Infow("relaying research request",
		"webhook_id", hook.ID,
		"webhook_name", hook.Name,
		"type", hook.Type,
	)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, &RelayError{Kind: FailureNetwork, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &RelayError{Kind: FailureStatus, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RelayError{Kind: FailureNetwork, cause: err}
	}

	report, err := parseReport(raw)
	if err != nil {
		return nil, &RelayError{Kind: FailureUnparsable, cause: err}
	}
	return report, nil
}

// parseReport decodes an endpoint response. Some engines answer with a
// single-element array, some with a bare object, and some with raw report
// text; all three are accepted.
func parseReport(raw []byte) (*Report, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, errors.New("empty response body")
	}

	var report Report
	if err := json.Unmarshal(raw, &report); err == nil {
		return &report, nil
	}

	var reports []Report
	if err := json.Unmarshal(raw, &reports); err == nil {
		if len(reports) == 0 {
			return nil, errors.New("empty response array")
		}
		return &reports[0], nil
	}

	return &Report{WebReport: text}, nil
}
