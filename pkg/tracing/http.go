package tracing

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/igoorng/webhook/internal/constants"
)

// UntracedPaths are polled by infrastructure or held open for the life of a
// client, so a span per request only adds noise.
var UntracedPaths = []string{
	constants.PathHealth,
	constants.PathMetrics,
	constants.PathStream,
	constants.PathWS,
}

// GinMiddleware opens a server span for every request except those to
// UntracedPaths. opts are passed through to otelgin after the path filter.
func GinMiddleware(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	all := append([]otelgin.Option{otelgin.WithFilter(SkipPaths(UntracedPaths...))}, opts...)
	return otelgin.Middleware(serviceName, all...)
}

// SkipPaths returns an otelgin filter that rejects requests whose URL path
// is one of paths.
func SkipPaths(paths ...string) otelgin.Filter {
	skip := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		skip[p] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := skip[r.URL.Path]
		return !ok
	}
}
