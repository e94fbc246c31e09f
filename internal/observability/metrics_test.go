package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("gateway", "GET", "/health", 200, 12*time.Millisecond)
	RecordCommand("ls", "ok", 3*time.Millisecond)
	RecordCommand("ls", "operation", time.Millisecond)
	RecordReconnect(true)

	if got := testutil.ToFloat64(sessionCommands.WithLabelValues("ls", "operation")); got < 1 {
		t.Fatalf("expected operation outcome counted, got %v", got)
	}
}

func TestRequestIDAndLoggerMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(zerolog.New(&logs)))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFrom(c))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	id := rr.Header().Get(RequestIDHeader)
	if id == "" || rr.Body.String() != id {
		t.Fatalf("expected generated request id echoed, header=%q body=%q", id, rr.Body.String())
	}
	if !strings.Contains(logs.String(), id) {
		t.Fatalf("expected request id in log line, got %s", logs.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Body.String() != "req-42" {
		t.Fatalf("expected client request id kept, got %q", rr.Body.String())
	}
}
