// SPDX-License-Identifier: MIT

package camera

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	motionEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pisentry_motion_events_total",
		Help: "Number of motion events handed to the coordinator",
	})

	recordingsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pisentry_recordings_failed_total",
		Help: "Number of motion recordings that hit a device error",
	})

	recordingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pisentry_recording_duration_seconds",
		Help:    "Wall time spent holding the device lock per recording",
		Buckets: prometheus.ExponentialBuckets(1, 2.0, 6), // 1s .. 32s
	})

	streamActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pisentry_stream_active",
		Help: "Whether the live MJPEG preview is currently active (0/1)",
	})

	framesServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pisentry_frames_served_total",
		Help: "Number of MJPEG preview frames captured and yielded",
	})
)
