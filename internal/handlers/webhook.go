package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/adsops/capi-bridge/internal/capi"
	"github.com/adsops/capi-bridge/internal/store"
	"github.com/adsops/capi-bridge/internal/webhook"
)

// signatureHeader carries the storefront's HMAC over the raw body.
const signatureHeader = "X-Shopify-Hmac-Sha256"

// Deps bundles what the route handlers need. Store may be nil: the audit
// log is optional and the forwarding path never depends on it.
type Deps struct {
	Verifier   *webhook.Verifier
	Dispatcher *capi.Dispatcher
	Store      *store.PostgresStore
	Log        *logrus.Logger
}

// orderPayload is the subset of a storefront "orders paid" notification the
// bridge cares about. Contact fields live in nested alternative locations;
// extraction precedence is handled in the handler, not here.
type orderPayload struct {
	ID         json.Number `json:"id"`
	Email      string      `json:"email"`
	TotalPrice capi.Money  `json:"total_price"`
	Currency   string      `json:"currency"`
	Customer   struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"customer"`
	BillingAddress struct {
		Phone string `json:"phone"`
	} `json:"billing_address"`
}

// RegisterWebhookRoutes registers the storefront webhook receiver.
//
// POST /webhooks/shopify/orders_paid
// - Signature is verified over the raw body before any parsing.
// - Contact precedence: email top-level then customer; phone customer then
//   billing_address. First non-empty wins.
// - Missing order id means the dispatcher synthesizes the idempotency key.
func RegisterWebhookRoutes(r gin.IRoutes, d Deps) {
	r.POST("/webhooks/shopify/orders_paid", func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read body"})
			return
		}

		if !d.Verifier.Verify(raw, c.GetHeader(signatureHeader)) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid HMAC"})
			return
		}

		var payload orderPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		email := payload.Email
		if email == "" {
			email = payload.Customer.Email
		}
		phone := payload.Customer.Phone
		if phone == "" {
			phone = payload.BillingAddress.Phone
		}

		ev := capi.ConversionEvent{
			EventName: capi.DefaultEventName,
			Value:     float64(payload.TotalPrice),
			Currency:  payload.Currency,
			Email:     email,
			Phone:     phone,
			EventID:   payload.ID.String(),
		}

		res, err := d.Dispatcher.Send(c.Request.Context(), ev)
		recordDispatch(c.Request.Context(), d, "webhook", ev, res, err)
		if err != nil {
			d.Log.WithError(err).WithField("event_id", ev.EventID).
				Error("webhook dispatch failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "meta": res})
	})
}

// recordDispatch appends the attempt to the audit log when a store is
// configured. Best-effort: a logging failure never fails the request.
func recordDispatch(ctx context.Context, d Deps, source string, ev capi.ConversionEvent, res capi.Result, sendErr error) {
	if d.Store == nil {
		return
	}

	outcome := res.SkipReason
	if sendErr != nil {
		outcome = sendErr.Error()
	}

	row := store.Dispatch{
		Source:     source,
		EventID:    ev.EventID,
		EventName:  ev.EventName,
		Value:      ev.Value,
		Currency:   ev.Currency,
		Skipped:    res.Skipped,
		StatusCode: res.StatusCode,
		Outcome:    outcome,
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Store.InsertDispatch(ctx, row); err != nil {
		d.Log.WithError(err).Warn("unable to record dispatch attempt")
	}
}
