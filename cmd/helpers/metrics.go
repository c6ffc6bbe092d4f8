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

package helpers

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor carries the registry shared by the broker collectors and the
// readiness of the broker answering for one instance id.
type Monitor struct {
	Registry *prometheus.Registry
	ready    atomic.Bool
}

// NewMonitor registers the runtime collectors and a karabo_broker_info gauge
// labelled with instanceID.
func NewMonitor(instanceID string) (*Monitor, error) {
	reg := prometheus.NewRegistry()
	info := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   "karabo",
		Subsystem:   "broker",
		Name:        "info",
		Help:        "Instance id answered by this Karabo hash broker.",
		ConstLabels: prometheus.Labels{"instance_id": instanceID},
	})
	info.Set(1)
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: "karabo"}),
		info,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &Monitor{Registry: reg}, nil
}

// SetReady flips the answer of /healthz/ready.
func (m *Monitor) SetReady(ready bool) {
	m.ready.Store(ready)
}

// Handler serves /healthz, /healthz/ready and /metrics.
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(res http.ResponseWriter, _ *http.Request) {
		res.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/healthz/ready", func(res http.ResponseWriter, _ *http.Request) {
		if !m.ready.Load() {
			res.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(res, "NOT READY")
			return
		}
		_, _ = io.WriteString(res, "READY")
	})
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(m.Registry,
		promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})))
	return mux
}

// Listen starts serving Handler on addr.
func (m *Monitor) Listen(addr string) (*MonitorServer, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	ms := &MonitorServer{
		http: &http.Server{Handler: m.Handler(), ReadHeaderTimeout: 5 * time.Second},
		addr: l.Addr(),
	}
	go func() {
		if e := ms.http.Serve(l); !errors.Is(e, http.ErrServerClosed) {
			ms.err.Store(e)
		}
	}()
	return ms, nil
}

// MonitorServer is a running monitoring endpoint.
type MonitorServer struct {
	http *http.Server
	addr net.Addr
	err  atomic.Value
}

func (ms *MonitorServer) Addr() net.Addr {
	return ms.addr
}

// Err reports why serving stopped, if it did so on its own.
func (ms *MonitorServer) Err() error {
	if e, ok := ms.err.Load().(error); ok {
		return e
	}
	return nil
}

func (ms *MonitorServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if e := ms.http.Shutdown(ctx); e != nil {
		_ = ms.http.Close()
	}
}
