package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adsops/capi-bridge/internal/capi"
)

// forwardRequest is the browser-to-server forward payload, typically fired
// from a storefront thank-you page. Every field is optional.
type forwardRequest struct {
	EventName      string     `json:"event_name"`
	Value          capi.Money `json:"value"`
	Currency       string     `json:"currency"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	EventID        string     `json:"event_id"`
	FBP            string     `json:"fbp"`
	FBC            string     `json:"fbc"`
	EventSourceURL string     `json:"event_source_url"`
	ClientUA       string     `json:"client_user_agent"`
	TestMode       bool       `json:"test_mode"`
}

// RegisterForwardRoutes registers the direct forward receiver and the
// operator smoke-test endpoint.
func RegisterForwardRoutes(r gin.IRoutes, d Deps) {
	// POST /capi/forward
	// Carries browser tracking tokens (fbp/fbc) the webhook path never sees.
	r.POST("/capi/forward", func(c *gin.Context) {
		var req forwardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		name := req.EventName
		if name == "" {
			name = capi.DefaultEventName
		}

		ev := capi.ConversionEvent{
			EventName:      name,
			Value:          float64(req.Value),
			Currency:       req.Currency,
			Email:          req.Email,
			Phone:          req.Phone,
			EventID:        req.EventID,
			FBP:            req.FBP,
			FBC:            req.FBC,
			EventSourceURL: req.EventSourceURL,
			ClientUA:       req.ClientUA,
			TestMode:       req.TestMode,
		}

		res, err := d.Dispatcher.Send(c.Request.Context(), ev)
		recordDispatch(c.Request.Context(), d, "forward", ev, res, err)
		if err != nil {
			d.Log.WithError(err).WithField("event_id", ev.EventID).
				Error("forward dispatch failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "meta": res})
	})

	// GET /capi/test?email=...
	// Fires a canned test-mode purchase so an operator can confirm the
	// destination wiring without touching live reporting.
	r.GET("/capi/test", func(c *gin.Context) {
		email := c.DefaultQuery("email", "test@example.com")

		ev := capi.ConversionEvent{
			EventName: capi.DefaultEventName,
			Value:     123.45,
			Currency:  capi.DefaultCurrency,
			Email:     email,
			EventID:   "test-" + strconv.FormatInt(time.Now().Unix(), 10),
			TestMode:  true,
		}

		res, err := d.Dispatcher.Send(c.Request.Context(), ev)
		recordDispatch(c.Request.Context(), d, "test", ev, res, err)
		if err != nil {
			d.Log.WithError(err).Error("test dispatch failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "dispatch failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "meta": res})
	})
}
