package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAddSanitizerRemovals(t *testing.T) {
	before := testutil.ToFloat64(SanitizerRemovals.WithLabelValues("metrics_test_rule"))

	AddSanitizerRemovals(map[string]int{"metrics_test_rule": 3})
	AddSanitizerRemovals(map[string]int{"metrics_test_rule": 2})

	assert.Equal(t, before+5, testutil.ToFloat64(SanitizerRemovals.WithLabelValues("metrics_test_rule")))
}

func TestSetBreakerState(t *testing.T) {
	SetBreakerState("metrics_test", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics_test")))
	SetBreakerState("metrics_test", 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics_test")))
}

func TestCollectorsRegistered(t *testing.T) {
	IncGeneration("local", "ok")
	IncRateLimited("memory")

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "smartgenesis_generations_total", "smartgenesis_rate_limited_total")
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}
