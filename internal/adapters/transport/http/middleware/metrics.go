package middleware

import (
	"strconv"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request count and latency per matched route. Unmatched
// paths share one label so scanners cannot blow up cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ts := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.Latency.WithLabelValues(route, c.Request.Method).Observe(time.Since(ts).Seconds())
	}
}
