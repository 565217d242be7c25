package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"interviewprep/internal/auth"
	contextutils "interviewprep/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedRouter(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(otelginWithProvider(tp))
	router.Use(ErrorSpanAttributes())
	return router, recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestGinMiddleware_BasicFunctionality(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware("test-service"))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorSpanAttributes_ServerError(t *testing.T) {
	router, recorder := newTracedRouter(t)
	router.GET("/boom", func(c *gin.Context) {
		c.Set(auth.IdentityKey, auth.Identity{UserID: "u-1"})
		_ = c.Error(contextutils.ErrAIResponseInvalid)
		c.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, otelcodes.Error, span.Status().Code)

	attrs := attrMap(span.Attributes())
	assert.Equal(t, string(contextutils.ErrorCodeAIResponseInvalid), attrs["error.code"].AsString())
	assert.Equal(t, "u-1", attrs["user.id"].AsString())
	assert.Equal(t, string(contextutils.SeverityError), attrs["error.severity"].AsString())
}

func TestErrorSpanAttributes_SuccessLeavesSpanAlone(t *testing.T) {
	router, recorder := newTracedRouter(t)
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotContains(t, attrMap(spans[0].Attributes()), "error.severity")
}

func TestDetermineErrorSeverity(t *testing.T) {
	assert.Equal(t, "error", determineErrorSeverity(http.StatusInternalServerError, nil))
	assert.Equal(t, "warn", determineErrorSeverity(http.StatusNotFound, nil))
	assert.Equal(t, "info", determineErrorSeverity(http.StatusOK, nil))

	ginErrs := []*gin.Error{{Err: contextutils.ErrRecordNotFound}}
	assert.Equal(t, "info", determineErrorSeverity(http.StatusNotFound, ginErrs))
}
