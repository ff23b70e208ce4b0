// SPDX-License-Identifier: MIT

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var mediaDeniedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "pisentry_media_requests_denied_total",
	Help: "Number of media file requests denied for security reasons",
})
