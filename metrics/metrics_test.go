package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newManualReader rebuilds every instrument on a provider whose reader the
// test can collect from directly
func newManualReader(t *testing.T) *metric.ManualReader {
	t.Helper()
	reader := metric.NewManualReader()
	meterProvider = metric.NewMeterProvider(metric.WithReader(reader))
	require.NoError(t, initializeInstruments())
	return reader
}

func collectMetric(t *testing.T, reader *metric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func attrValue(t *testing.T, attrs attribute.Set, key string) string {
	t.Helper()
	v, ok := attrs.Value(attribute.Key(key))
	require.True(t, ok, "missing attribute %s", key)
	return v.AsString()
}

func TestAddRelayError(t *testing.T) {
	reader := newManualReader(t)
	ctx := context.Background()

	AddRelayError(ctx, "ibc0", "ibc1", "relay_packets")
	AddRelayError(ctx, "ibc0", "ibc1", "relay_packets")

	m, found := collectMetric(t, reader, "relayer.relay_errors")
	require.True(t, found)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	dp := sum.DataPoints[0]
	require.Equal(t, int64(2), dp.Value)
	require.Equal(t, "ibc0", attrValue(t, dp.Attributes, "src_chain_id"))
	require.Equal(t, "ibc1", attrValue(t, dp.Attributes, "dst_chain_id"))
	require.Equal(t, "relay_packets", attrValue(t, dp.Attributes, "kind"))
}

func TestAddRelayedPacket(t *testing.T) {
	reader := newManualReader(t)
	ctx := context.Background()

	AddRelayedPacket(ctx, "ibc1", "relay-packets")

	m, found := collectMetric(t, reader, "relayer.relayed_packets")
	require.True(t, found)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	require.Equal(t, int64(1), sum.DataPoints[0].Value)
	require.Equal(t, "ibc1", attrValue(t, sum.DataPoints[0].Attributes, "chain_id"))
}

func TestBacklogGauges(t *testing.T) {
	reader := newManualReader(t)
	attr := attribute.String("chain_id", "ibc0")

	BacklogSizeGauge.Set(3, attr)
	BacklogOldestTimestampGauge.Set(1700000000000000000, attr)

	m, found := collectMetric(t, reader, "relayer.backlog_size")
	require.True(t, found)
	gauge, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	require.Equal(t, int64(3), gauge.DataPoints[0].Value)
	require.Equal(t, "ibc0", attrValue(t, gauge.DataPoints[0].Attributes, "chain_id"))

	m, found = collectMetric(t, reader, "relayer.backlog_oldest_timestamp")
	require.True(t, found)
	gauge, ok = m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	require.Equal(t, int64(1700000000000000000), gauge.DataPoints[0].Value)

	// an emptied backlog overwrites the previous observation
	BacklogSizeGauge.Set(0, attr)
	m, found = collectMetric(t, reader, "relayer.backlog_size")
	require.True(t, found)
	gauge, ok = m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	require.Equal(t, int64(0), gauge.DataPoints[0].Value)
}

func TestCountersBeforeInitialization(t *testing.T) {
	RelayedPacketsCounter = nil
	RelayErrorsCounter = nil
	require.NotPanics(t, func() {
		AddRelayedPacket(context.Background(), "ibc0", "relay-packets")
		AddRelayError(context.Background(), "ibc0", "ibc1", "relay-packets")
	})
}
