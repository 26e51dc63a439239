// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bus topics embed player ids, so labels carry only the topic family
// ("player" for "player.p1").

var (
	BusDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_bus_delivered_total",
		Help: "Player signals handed to event stream subscribers",
	}, []string{"family"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gstb_bus_dropped_total",
		Help: "Player signals dropped before reaching a subscriber, by reason",
	}, []string{"family", "reason"})

	BusSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gstb_bus_subscribers",
		Help: "Open event stream subscriptions",
	}, []string{"family"})
)

// TopicFamily strips the per-player suffix from a bus topic.
func TopicFamily(topic string) string {
	if topic == "" {
		return "unknown"
	}
	family, _, _ := strings.Cut(topic, ".")
	return family
}

// AddBusDelivered counts n deliveries on topic.
func AddBusDelivered(topic string, n int) {
	if n <= 0 {
		return
	}
	BusDeliveredTotal.WithLabelValues(TopicFamily(topic)).Add(float64(n))
}

// IncBusDrop records a message dropped because the subscriber buffer was full.
func IncBusDrop(topic string) {
	IncBusDropReason(topic, "full")
}

// IncBusDropReason records a dropped message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	BusDroppedTotal.WithLabelValues(TopicFamily(topic), reason).Inc()
}

// BusSubscribed adjusts the subscriber gauge by delta.
func BusSubscribed(topic string, delta int) {
	BusSubscribers.WithLabelValues(TopicFamily(topic)).Add(float64(delta))
}
