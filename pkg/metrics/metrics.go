/*
 *     Copyright (c) 2023. Raft LLC
 *
 *     This program is free software: you can redistribute it and/or modify
 *     it under the terms of the GNU General Public License as published by
 *     the Free Software Foundation, either version 3 of the License, or
 *     (at your option) any later version.
 *
 *     This program is distributed in the hope that it will be useful,
 *     but WITHOUT ANY WARRANTY; without even the implied warranty of
 *     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *     GNU General Public License for more details.
 *
 *     You should have received a copy of the GNU General Public License
 *     along with this program.  If not, see <https://www.gnu.org/licenses/>.
 *
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "karabo"

type Collector interface {
	WithLabels(labels prometheus.Labels) RequestMetricsCollector
}

func ForClient(reg prometheus.Registerer) Collector {
	if reg == nil {
		return nop{}
	}
	c := new(collector)
	c.register(reg, "client")
	return c
}

type ServerCollector interface {
	Collector
	UnknownSlot(slot string)
}

func ForServer(reg prometheus.Registerer) ServerCollector {
	if reg == nil {
		return nop{}
	}
	c := new(collector)
	c.register(reg, "server")
	c.unknownSlots = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "server",
		Name:      "unknown_slots",
	}, []string{"slot"})
	reg.MustRegister(c.unknownSlots)
	return c
}

type collector struct {
	unknownSlots *prometheus.CounterVec
	errors       *prometheus.CounterVec
	checks       *prometheus.CounterVec
	calls        *prometheus.CounterVec
	published    *prometheus.CounterVec
}

func (col *collector) register(reg prometheus.Registerer, subsystem string) {
	labels := []string{"peer", "slot"}
	col.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors",
	}, labels)
	col.checks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "checks",
	}, labels)
	col.calls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "calls",
	}, labels)
	col.published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "signals_published",
	}, labels)
	reg.MustRegister(col.errors, col.checks, col.calls, col.published)
}

func (col *collector) UnknownSlot(slot string) {
	col.unknownSlots.With(prometheus.Labels{"slot": slot}).Inc()
}

// WithLabels binds the request counters to a peer and slot. Missing labels
// are recorded as empty.
func (col *collector) WithLabels(labels prometheus.Labels) RequestMetricsCollector {
	l := prometheus.Labels{"peer": labels["peer"], "slot": labels["slot"]}
	metrics := new(requestMetrics)
	metrics.errors = col.errors.With(l)
	metrics.checked = col.checks.With(l)
	metrics.called = col.calls.With(l)
	metrics.published = col.published.With(l)
	return metrics
}

type RequestMetricsCollector interface {
	Erred()
	Checked()
	Called()
	Published()
}

type requestMetrics struct {
	errors    prometheus.Counter
	checked   prometheus.Counter
	called    prometheus.Counter
	published prometheus.Counter
}

func (r *requestMetrics) Erred() {
	r.errors.Inc()
}

func (r *requestMetrics) Checked() {
	r.checked.Inc()
}

func (r *requestMetrics) Called() {
	r.called.Inc()
}

func (r *requestMetrics) Published() {
	r.published.Inc()
}

type nop struct{}

func (n nop) WithLabels(labels prometheus.Labels) RequestMetricsCollector {
	return n
}

func (n nop) UnknownSlot(slot string) {}

func (n nop) Erred() {}

func (n nop) Checked() {}

func (n nop) Called() {}

func (n nop) Published() {}

func (n nop) Encoded(format string, bytes int) {}

func (n nop) Decoded(format string, bytes int) {}

func (n nop) Failed(format, op string) {}

func (n nop) Validated(violations int) {}
