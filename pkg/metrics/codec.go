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
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// CodecCollector counts serialized documents and their sizes per format.
type CodecCollector interface {
	Encoded(format string, bytes int)
	Decoded(format string, bytes int)
	Failed(format, op string)
}

func ForCodecs(reg prometheus.Registerer) CodecCollector {
	if reg == nil {
		return nop{}
	}
	c := &codecCollector{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "documents",
		}, []string{"format", "op"}),
		bytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "document_bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"format", "op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "failures",
		}, []string{"format", "op"}),
	}
	reg.MustRegister(c.documents, c.bytes, c.failures)
	return c
}

type codecCollector struct {
	documents *prometheus.CounterVec
	bytes     *prometheus.HistogramVec
	failures  *prometheus.CounterVec
}

func (c *codecCollector) Encoded(format string, bytes int) {
	c.observe(format, "encode", bytes)
}

func (c *codecCollector) Decoded(format string, bytes int) {
	c.observe(format, "decode", bytes)
}

func (c *codecCollector) observe(format, op string, bytes int) {
	l := prometheus.Labels{"format": format, "op": op}
	c.documents.With(l).Inc()
	c.bytes.With(l).Observe(float64(bytes))
}

func (c *codecCollector) Failed(format, op string) {
	c.failures.With(prometheus.Labels{"format": format, "op": op}).Inc()
}

// ValidatorCollector counts validations by their number of violations.
type ValidatorCollector interface {
	Validated(violations int)
}

func ForValidator(reg prometheus.Registerer) ValidatorCollector {
	if reg == nil {
		return nop{}
	}
	c := &validatorCollector{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "validations",
		}, []string{"valid"}),
		violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "violations",
		}),
	}
	reg.MustRegister(c.runs, c.violations)
	return c
}

type validatorCollector struct {
	runs       *prometheus.CounterVec
	violations prometheus.Counter
}

func (c *validatorCollector) Validated(violations int) {
	c.runs.With(prometheus.Labels{"valid": strconv.FormatBool(violations == 0)}).Inc()
	c.violations.Add(float64(violations))
}
