package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCount(t *testing.T, labels ...string) uint64 {
	t.Helper()
	h, ok := HTTPRequestDuration.WithLabelValues(labels...).(prometheus.Histogram)
	require.True(t, ok)
	m := &dto.Metric{}
	require.NoError(t, h.Write(m))
	return m.GetHistogram().GetSampleCount()
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	HTTPRequestDuration.Reset()
	t.Cleanup(HTTPRequestDuration.Reset)

	r := gin.New()
	r.Use(Middleware())
	r.GET("/lottery/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for _, path := range []string{"/lottery/1", "/lottery/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2, testutil.CollectAndCount(HTTPRequestDuration))
	assert.Equal(t, uint64(2), sampleCount(t, "GET", "/lottery/:id", "200"))
	assert.Equal(t, uint64(1), sampleCount(t, "GET", "unmatched", "404"))
}
