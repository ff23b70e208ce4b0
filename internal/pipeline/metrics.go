// SPDX-License-Identifier: MIT

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pisentry_pipeline_processed_total",
		Help: "Number of clips fully processed and persisted",
	})

	stageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pisentry_pipeline_stage_failures_total",
		Help: "Number of pipeline stage failures",
	}, []string{"stage"})
)
