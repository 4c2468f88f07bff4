package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Idempotent(t *testing.T) {
	Init()
	Init()
	require.NotNil(t, batchesTotal)
}

func TestObserveHelpers(t *testing.T) {
	Init()

	// Exercising the helpers must not panic.
	ObserveBatch("completed", 1200*time.Millisecond)
	ObserveBatch("no_work", time.Millisecond)
	ObserveItem("fired")
	ObserveItem("held")
	ObserveItemFailure("fetch")
	ObserveNotification("smtp", "ok")
	ObserveHTTPRequest("POST", "/v1/tracker/run", 200, 5*time.Millisecond)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveBatch("completed", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "pricewatch_batches_total")
}
