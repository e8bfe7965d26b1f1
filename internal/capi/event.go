package capi

import (
	"bytes"
	"strconv"
)

// DefaultCurrency is applied when an inbound event carries no currency.
const DefaultCurrency = "TRY"

// DefaultEventName is applied when an inbound event carries no name.
const DefaultEventName = "Purchase"

// ConversionEvent is the canonical in-memory form of one purchase signal.
// It exists for a single request: built from an inbound payload, turned
// into a wire envelope, submitted, discarded. Email and Phone hold raw PII
// and must never be logged or persisted; only their hashes go on the wire.
type ConversionEvent struct {
	EventName      string
	Value          float64
	Currency       string
	Email          string
	Phone          string
	EventID        string // idempotency key; synthesized by the dispatcher when empty
	FBP            string
	FBC            string
	EventSourceURL string
	ClientUA       string
	TestMode       bool
}

// Money is a monetary amount that tolerates the shapes storefronts actually
// send: a JSON number, a numeric string ("250.00"), null, or garbage.
// Anything unparsable decodes to 0 rather than failing the request.
type Money float64

// UnmarshalJSON implements lenient decoding for Money.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			*m = 0
			return nil
		}
		return m.parse(s)
	}
	return m.parse(string(data))
}

func (m *Money) parse(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*m = 0
		return nil
	}
	*m = Money(f)
	return nil
}

// userData is the hashed-identity block of the wire payload. fbp, fbc and
// client_user_agent are sparse: omitted entirely when the caller did not
// supply them.
type userData struct {
	Email    string `json:"em"`
	Phone    string `json:"ph"`
	FBP      string `json:"fbp,omitempty"`
	FBC      string `json:"fbc,omitempty"`
	ClientUA string `json:"client_user_agent,omitempty"`
}

// customData carries the monetary attributes of the conversion.
type customData struct {
	Currency string  `json:"currency"`
	Value    float64 `json:"value"`
}

// wireEvent is one event inside the batch envelope.
type wireEvent struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	ActionSource   string     `json:"action_source"`
	EventID        string     `json:"event_id"`
	UserData       userData   `json:"user_data"`
	CustomData     customData `json:"custom_data"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
}

// envelope is the batch wrapper POSTed to the destination. The credential
// travels in the body, not a header, per the destination's contract.
type envelope struct {
	Data          []wireEvent `json:"data"`
	AccessToken   string      `json:"access_token"`
	TestEventCode string      `json:"test_event_code,omitempty"`
}
