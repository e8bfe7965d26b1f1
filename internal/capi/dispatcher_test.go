package capi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsops/capi-bridge/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig() config.Config {
	return config.Config{
		PixelID:      "pixel-1",
		AccessToken:  "token-1",
		GraphVersion: "v17.0",
		GraphBaseURL: "https://graph.facebook.com",
	}
}

// newTestDispatcher points the dispatcher at a stand-in destination.
func newTestDispatcher(cfg config.Config, endpoint string) *Dispatcher {
	d := NewDispatcher(cfg, testLogger())
	if endpoint != "" {
		d.endpoint = endpoint
	}
	return d
}

// capture decodes the last request the stand-in destination received.
type capture struct {
	body map[string]interface{}
	hits int
}

func captureServer(t *testing.T, c *capture, respond string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.hits++
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		c.body = nil
		require.NoError(t, json.Unmarshal(raw, &c.body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond))
	}))
}

func TestSend_SkipsWhenDestinationNotConfigured(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{}`)
	defer srv.Close()

	for _, cfg := range []config.Config{
		{AccessToken: "token-1"}, // pixel missing
		{PixelID: "pixel-1"},     // token missing
		{},                       // both missing
	} {
		d := newTestDispatcher(cfg, srv.URL)

		res, err := d.Send(context.Background(), ConversionEvent{EventName: "Purchase"})
		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, "missing META_PIXEL_ID or META_ACCESS_TOKEN", res.SkipReason)
	}

	assert.Zero(t, c.hits, "skip must not reach the network")
}

func TestSend_BuildsExpectedEnvelope(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{"events_received":1}`)
	defer srv.Close()

	d := newTestDispatcher(testConfig(), srv.URL)

	res, err := d.Send(context.Background(), ConversionEvent{
		EventName: "Purchase",
		Value:     1600,
		Currency:  "TRY",
		Email:     "x@y.com",
		Phone:     "+905321234567",
		EventID:   "12345",
	})
	require.NoError(t, err)

	assert.False(t, res.Skipped)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, float64(1), res.Response["events_received"])

	assert.Equal(t, "token-1", c.body["access_token"])
	_, hasTestCode := c.body["test_event_code"]
	assert.False(t, hasTestCode)

	data, ok := c.body["data"].([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
	event := data[0].(map[string]interface{})

	assert.Equal(t, "Purchase", event["event_name"])
	assert.Equal(t, "website", event["action_source"])
	assert.Equal(t, "12345", event["event_id"])
	assert.NotZero(t, event["event_time"])

	custom := event["custom_data"].(map[string]interface{})
	assert.Equal(t, "TRY", custom["currency"])
	assert.Equal(t, 1600.0, custom["value"])

	user := event["user_data"].(map[string]interface{})
	assert.Equal(t, HashEmail("x@y.com"), user["em"])
	assert.Equal(t, trPhoneDigest, user["ph"])

	// Sparse fields: absent, not null.
	for _, key := range []string{"fbp", "fbc", "client_user_agent"} {
		_, present := user[key]
		assert.False(t, present, "user_data.%s must be omitted", key)
	}
	_, present := event["event_source_url"]
	assert.False(t, present, "event_source_url must be omitted")
}

func TestSend_RawPIINeverOnTheWire(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{}`)
	defer srv.Close()

	d := newTestDispatcher(testConfig(), srv.URL)

	_, err := d.Send(context.Background(), ConversionEvent{
		EventName: "Purchase",
		Email:     "Raw.Person@example.com",
		Phone:     "05321234567",
	})
	require.NoError(t, err)

	raw, err := json.Marshal(c.body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Raw.Person@example.com")
	assert.NotContains(t, string(raw), "05321234567")
}

func TestSend_PassesThroughBrowserTokens(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{}`)
	defer srv.Close()

	d := newTestDispatcher(testConfig(), srv.URL)

	_, err := d.Send(context.Background(), ConversionEvent{
		EventName:      "Purchase",
		FBP:            "fb.1.1690000000.111",
		FBC:            "fb.1.1690000000.222",
		EventSourceURL: "https://shop.example.com/checkout/thank_you",
		ClientUA:       "Mozilla/5.0",
	})
	require.NoError(t, err)

	event := c.body["data"].([]interface{})[0].(map[string]interface{})
	user := event["user_data"].(map[string]interface{})

	assert.Equal(t, "fb.1.1690000000.111", user["fbp"])
	assert.Equal(t, "fb.1.1690000000.222", user["fbc"])
	assert.Equal(t, "Mozilla/5.0", user["client_user_agent"])
	assert.Equal(t, "https://shop.example.com/checkout/thank_you", event["event_source_url"])
}

func TestSend_SynthesizesEventIDAndDefaultsCurrency(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{}`)
	defer srv.Close()

	d := newTestDispatcher(testConfig(), srv.URL)
	fixed := time.Unix(1700000000, 0)
	d.now = func() time.Time { return fixed }

	_, err := d.Send(context.Background(), ConversionEvent{EventName: "Purchase"})
	require.NoError(t, err)

	event := c.body["data"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "svr-1700000000", event["event_id"])
	assert.Equal(t, 1700000000.0, event["event_time"])

	custom := event["custom_data"].(map[string]interface{})
	assert.Equal(t, DefaultCurrency, custom["currency"])
	assert.Equal(t, 0.0, custom["value"])
}

func TestSend_TestEventCodeRouting(t *testing.T) {
	var c capture
	srv := captureServer(t, &c, `{}`)
	defer srv.Close()

	cfg := testConfig()
	cfg.TestEventCode = "TEST123"

	// test_mode with a configured code: routed to the sandbox channel.
	d := newTestDispatcher(cfg, srv.URL)
	_, err := d.Send(context.Background(), ConversionEvent{EventName: "Purchase", TestMode: true})
	require.NoError(t, err)
	assert.Equal(t, "TEST123", c.body["test_event_code"])

	// Live mode: code never attached even when configured.
	_, err = d.Send(context.Background(), ConversionEvent{EventName: "Purchase"})
	require.NoError(t, err)
	_, present := c.body["test_event_code"]
	assert.False(t, present)

	// test_mode without a configured code: nothing to attach.
	noCode := newTestDispatcher(testConfig(), srv.URL)
	_, err = noCode.Send(context.Background(), ConversionEvent{EventName: "Purchase", TestMode: true})
	require.NoError(t, err)
	_, present = c.body["test_event_code"]
	assert.False(t, present)
}

func TestSend_NonJSONResponseFallsBackToRawText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	d := newTestDispatcher(testConfig(), srv.URL)

	res, err := d.Send(context.Background(), ConversionEvent{EventName: "Purchase"})
	require.NoError(t, err, "a non-JSON destination response is data, not an error")

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	assert.Equal(t, "upstream exploded", res.RawBody)
	assert.Nil(t, res.Response)
}

func TestSend_TransportFailureIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	d := newTestDispatcher(testConfig(), srv.URL)

	_, err := d.Send(context.Background(), ConversionEvent{EventName: "Purchase"})
	assert.Error(t, err)
}
