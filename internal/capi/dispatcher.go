package capi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/adsops/capi-bridge/internal/config"
)

// dispatchTimeout bounds the single outbound attempt. There is no retry:
// durability, if needed, belongs in a queue in front of this service.
const dispatchTimeout = 20 * time.Second

// Result is the outcome of one dispatch attempt.
//
// Exactly one of three shapes applies:
//   - Skipped=true: destination not configured, no call was made.
//   - Response set: the destination answered with parseable JSON
//     (success and failure alike; callers inspect the body).
//   - RawBody set: the destination answered with a non-JSON body; the raw
//     status code and text are carried instead of an error.
//
// Transport failures (dial, timeout) are returned as Go errors, never as
// a Result.
type Result struct {
	Skipped    bool                   `json:"skipped,omitempty"`
	SkipReason string                 `json:"reason,omitempty"`
	StatusCode int                    `json:"status_code,omitempty"`
	Response   map[string]interface{} `json:"response,omitempty"`
	RawBody    string                 `json:"text,omitempty"`
}

// Dispatcher builds the wire envelope for a ConversionEvent and submits it
// to the conversion endpoint. It holds no mutable state and is safe for
// concurrent use.
type Dispatcher struct {
	cfg      config.Config
	log      *logrus.Logger
	client   *http.Client
	endpoint string
	now      func() time.Time
}

// NewDispatcher wires a dispatcher against the configured destination.
func NewDispatcher(cfg config.Config, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		log:      log,
		client:   &http.Client{Timeout: dispatchTimeout},
		endpoint: cfg.EndpointURL(),
		now:      time.Now,
	}
}

// Send hashes the event's PII, builds the batch envelope and performs one
// best-effort POST. See Result for the outcome contract.
func (d *Dispatcher) Send(ctx context.Context, ev ConversionEvent) (Result, error) {
	if !d.cfg.DispatchConfigured() {
		d.log.WithField("event_id", ev.EventID).
			Debug("dispatch skipped: destination not configured")
		return Result{
			Skipped:    true,
			SkipReason: "missing META_PIXEL_ID or META_ACCESS_TOKEN",
		}, nil
	}

	nowUnix := d.now().Unix()

	eventID := ev.EventID
	if eventID == "" {
		eventID = "svr-" + strconv.FormatInt(nowUnix, 10)
	}

	currency := ev.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	event := wireEvent{
		EventName:    ev.EventName,
		EventTime:    nowUnix,
		ActionSource: "website",
		EventID:      eventID,
		UserData: userData{
			Email:    HashEmail(ev.Email),
			Phone:    HashPhone(ev.Phone),
			FBP:      ev.FBP,
			FBC:      ev.FBC,
			ClientUA: ev.ClientUA,
		},
		CustomData: customData{
			Currency: currency,
			Value:    ev.Value,
		},
		EventSourceURL: ev.EventSourceURL,
	}

	env := envelope{
		Data:        []wireEvent{event},
		AccessToken: d.cfg.AccessToken,
	}
	if ev.TestMode && d.cfg.TestEventCode != "" {
		env.TestEventCode = d.cfg.TestEventCode
	}

	body, err := json.Marshal(env)
	if err != nil {
		return Result{}, fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("post conversion event: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"event_id": eventID,
		"status":   resp.StatusCode,
	}).Debug("conversion event dispatched")

	var parsed map[string]interface{}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// Destination-side failures are data, not errors: hand the raw
		// status and text back to the caller.
		return Result{
			StatusCode: resp.StatusCode,
			RawBody:    string(respBody),
		}, nil
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   parsed,
	}, nil
}
