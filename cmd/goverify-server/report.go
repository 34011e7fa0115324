package main

import (
	"context"

	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// logCollected logs every non-zero counter the reader collects.
func logCollected(ctx context.Context, log logrus.FieldLogger, reader sdkmetric.Reader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		log.WithError(err).Warn("metrics collection failed")
		return
	}
	log.WithFields(collectedFields(rm)).Info("metrics report")
}

func collectedFields(rm metricdata.ResourceMetrics) logrus.Fields {
	fields := logrus.Fields{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if dp.Value != 0 {
					fields[m.Name] = dp.Value
				}
			}
		}
	}
	return fields
}
