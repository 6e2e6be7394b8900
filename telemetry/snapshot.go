package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Snapshot collects the current metric state and flattens it into a
// JSON-friendly structure for the /metrics endpoint.
func (t *Telemetry) Snapshot(ctx context.Context) (map[string]any, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("telemetry: collect metrics: %w", err)
	}

	metrics := make([]map[string]any, 0)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			metrics = append(metrics, map[string]any{
				"name":        m.Name,
				"description": m.Description,
				"unit":        m.Unit,
				"data":        flattenAggregation(m.Data),
			})
		}
	}
	return map[string]any{"metrics": metrics}, nil
}

func flattenAggregation(agg metricdata.Aggregation) []map[string]any {
	switch data := agg.(type) {
	case metricdata.Sum[int64]:
		out := make([]map[string]any, 0, len(data.DataPoints))
		for _, dp := range data.DataPoints {
			out = append(out, map[string]any{
				"attributes": flattenAttributes(dp.Attributes.ToSlice()),
				"value":      dp.Value,
			})
		}
		return out
	case metricdata.Sum[float64]:
		out := make([]map[string]any, 0, len(data.DataPoints))
		for _, dp := range data.DataPoints {
			out = append(out, map[string]any{
				"attributes": flattenAttributes(dp.Attributes.ToSlice()),
				"value":      dp.Value,
			})
		}
		return out
	case metricdata.Histogram[float64]:
		out := make([]map[string]any, 0, len(data.DataPoints))
		for _, dp := range data.DataPoints {
			point := map[string]any{
				"attributes": flattenAttributes(dp.Attributes.ToSlice()),
				"count":      dp.Count,
				"sum":        dp.Sum,
			}
			if min, ok := dp.Min.Value(); ok {
				point["min"] = min
			}
			if max, ok := dp.Max.Value(); ok {
				point["max"] = max
			}
			out = append(out, point)
		}
		return out
	case metricdata.Gauge[int64]:
		out := make([]map[string]any, 0, len(data.DataPoints))
		for _, dp := range data.DataPoints {
			out = append(out, map[string]any{
				"attributes": flattenAttributes(dp.Attributes.ToSlice()),
				"value":      dp.Value,
			})
		}
		return out
	case metricdata.Gauge[float64]:
		out := make([]map[string]any, 0, len(data.DataPoints))
		for _, dp := range data.DataPoints {
			out = append(out, map[string]any{
				"attributes": flattenAttributes(dp.Attributes.ToSlice()),
				"value":      dp.Value,
			})
		}
		return out
	default:
		return nil
	}
}

func flattenAttributes(kvs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value.AsInterface()
	}
	return out
}
