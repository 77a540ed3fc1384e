package proxy_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/config"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/metrics"
	"github.com/born-ml/fxtrace/internal/ops"
	"github.com/born-ml/fxtrace/internal/proxy"
	"github.com/born-ml/fxtrace/internal/tensor"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestTraceMetrics(t *testing.T) {
	ok := counterValue(t, metrics.TracesTotal.WithLabelValues("fake", "ok"))
	failed := counterValue(t, metrics.TracesTotal.WithLabelValues("real", "error"))
	calls := counterValue(t, metrics.NodesEmitted.WithLabelValues("call_function"))
	decomposed := counterValue(t, metrics.DecompositionsApplied.WithLabelValues("addmm", "table"))

	_, err := proxy.Trace(newContext(), addRelu, []any{fromSlice(t, []float32{1, 2}, 2)}, proxy.WithMode(proxy.Fake))
	require.NoError(t, err)
	assert.Equal(t, ok+1, counterValue(t, metrics.TracesTotal.WithLabelValues("fake", "ok")))
	assert.Equal(t, calls+2, counterValue(t, metrics.NodesEmitted.WithLabelValues("call_function")))

	_, err = proxy.Trace(newContext(), affine, affineInputs(t), proxy.WithDecompositions(catalog.CoreDecompositions()))
	require.NoError(t, err)
	assert.Equal(t, decomposed+1, counterValue(t, metrics.DecompositionsApplied.WithLabelValues("addmm", "table")))

	item := func(c *dispatch.Context, args ...any) (any, error) {
		return ops.Item(c, args[0].(*tensor.Tensor))
	}
	_, err = proxy.Trace(newContext(), item, []any{fromSlice(t, []float32{1}, 1)})
	require.Error(t, err)
	assert.Equal(t, failed+1, counterValue(t, metrics.TracesTotal.WithLabelValues("real", "error")))

	cfg := config.Default()
	cfg.Metrics = false
	before := counterValue(t, metrics.TracesTotal.WithLabelValues("real", "ok"))
	_, err = proxy.Trace(newContext(), addRelu, []any{fromSlice(t, []float32{1}, 1)}, proxy.WithConfig(cfg))
	require.NoError(t, err)
	assert.Equal(t, before, counterValue(t, metrics.TracesTotal.WithLabelValues("real", "ok")))
}
