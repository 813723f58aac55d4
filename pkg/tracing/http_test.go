package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareSkipsUntracedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(GinMiddleware("webhook-test", otelgin.WithTracerProvider(tp)))
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	router.POST("/webhook", ok)
	router.GET("/health", ok)
	router.GET("/metrics", ok)
	router.GET("/api/stream", ok)
	router.GET("/api/ws", ok)
	router.GET("/api/messages", ok)

	tests := []struct {
		name     string
		method   string
		target   string
		wantSpan string
	}{
		{name: "webhook", method: http.MethodPost, target: "/webhook", wantSpan: "POST /webhook"},
		{name: "messages with query", method: http.MethodGet, target: "/api/messages?page=2", wantSpan: "GET /api/messages"},
		{name: "health", method: http.MethodGet, target: "/health"},
		{name: "metrics", method: http.MethodGet, target: "/metrics"},
		{name: "sse stream", method: http.MethodGet, target: "/api/stream"},
		{name: "websocket", method: http.MethodGet, target: "/api/ws?x=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))
			require.Equal(t, http.StatusOK, w.Code)

			spans := exporter.GetSpans()
			if tt.wantSpan == "" {
				assert.Empty(t, spans)
				return
			}
			require.Len(t, spans, 1)
			assert.Equal(t, tt.wantSpan, spans[0].Name)
		})
	}
}

func TestSkipPaths(t *testing.T) {
	filter := SkipPaths("/health")

	assert.False(t, filter(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.True(t, filter(httptest.NewRequest(http.MethodGet, "/health/extra", nil)))
	assert.True(t, filter(httptest.NewRequest(http.MethodGet, "/", nil)))
}
