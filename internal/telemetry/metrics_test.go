package telemetry

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClass(t *testing.T) {
	assert.Equal(t, "survived", Class(1))
	assert.Equal(t, "died", Class(0))
}

func TestCountersAndHandler(t *testing.T) {
	before := testutil.ToFloat64(Predictions.WithLabelValues("survived"))
	Predictions.WithLabelValues("survived").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Predictions.WithLabelValues("survived")))

	ObserveStep("scaler", "fit", time.Now().Add(-time.Millisecond))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "titanic_predictions_total"))
	assert.True(t, strings.Contains(body, `titanic_pipeline_step_seconds_count{phase="fit",step="scaler"}`))
}
