package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	resp "skillswap/internal/transport/http/response"
)

// KeyBizCode 失败信封的业务码，Metrics 和 AccessLog 读它
const KeyBizCode = "bizCode"

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skillswap",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests by route and envelope code",
		},
		[]string{"path", "method", "code"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skillswap",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"},
	)
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "skillswap",
		Subsystem: "http",
		Name:      "in_flight_requests",
		Help:      "Requests currently being served",
	})
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpInFlight) }

func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(path, c.Request.Method, strconv.Itoa(bizCode(c))).Inc()
		httpLatency.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// bizCode 没写过业务码时：200 记 0，其他 HTTP 状态原样记
func bizCode(c *gin.Context) int {
	if v, ok := c.Get(KeyBizCode); ok {
		if code, ok := v.(int); ok {
			return code
		}
	}
	if s := c.Writer.Status(); s != http.StatusOK {
		return s
	}
	return 0
}

// Abort 写失败信封并记下业务码
func Abort(c *gin.Context, code int, kind, msg string) {
	c.Set(KeyBizCode, code)
	c.AbortWithStatusJSON(http.StatusOK, resp.ErrorKind(code, kind, msg))
}
