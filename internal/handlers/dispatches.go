package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RegisterDispatchRoutes registers the operator read endpoint.
//
// GET /dispatches?limit=N
// - Requires X-API-Key (operator key)
// - Returns the most recent dispatch-log rows, newest first
func RegisterDispatchRoutes(r gin.IRoutes, d Deps) {
	r.GET("/dispatches", func(c *gin.Context) {
		if d.Store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dispatch log not configured"})
			return
		}

		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			if n > 500 {
				n = 500
			}
			limit = n
		}

		rows, err := d.Store.RecentDispatches(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db query failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"count":      len(rows),
			"dispatches": rows,
		})
	})
}
