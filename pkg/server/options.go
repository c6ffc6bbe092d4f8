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

package server

import (
	"context"
	"sync"

	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Slot handles a call addressed to one of the served slots. The returned
// values become the arguments of the reply. An error is answered in-band
// with an error reply.
type Slot func(ctx context.Context, call *message.Message) ([]any, error)

// SignalHandler receives broadcast signals that name no slot instances.
type SignalHandler func(ctx context.Context, signal *message.Message) error

type SlotResolver func(string) (Slot, bool)

var (
	slots                            = make(map[string]Slot)
	slotsLock                        = sync.RWMutex{}
	defaultSlotResolver SlotResolver = func(k string) (Slot, bool) {
		slotsLock.RLock()
		defer slotsLock.RUnlock()
		s, ok := slots[k]
		return s, ok
	}
	DefaultOptions = Options{}
)

func RegisterSlot(name string, slot Slot) bool {
	slotsLock.Lock()
	defer slotsLock.Unlock()
	if _, ok := slots[name]; !ok {
		slots[name] = slot
		return true
	} else {
		return false
	}
}

// RegisteredSlot resolves the slots added with RegisterSlot.
func RegisteredSlot(name string) (Slot, bool) {
	return defaultSlotResolver(name)
}

func DeregisterSlot(name string) bool {
	slotsLock.Lock()
	defer slotsLock.Unlock()
	if _, ok := slots[name]; ok {
		delete(slots, name)
		return true
	} else {
		return false
	}
}

type Options struct {
	// InstanceID is the instance the server answers for. When empty, the
	// first addressed instance of every call is served.
	InstanceID    string
	SlotResolver  SlotResolver
	SignalHandler SignalHandler
	Metrics       prometheus.Registerer
}

func (opt *Options) apply(srv *server) {

	srv.instanceID = opt.InstanceID

	srv.lookup = defaultSlotResolver
	if sr := opt.SlotResolver; sr != nil {
		srv.lookup = sr
	}

	srv.signals = opt.SignalHandler

	srv.metrics = metrics.ForServer(opt.Metrics)
	if opt.Metrics != nil {
		srv.codecOpts = []codec.Option{codec.WithMetrics(metrics.ForCodecs(opt.Metrics))}
	}
}

const (
	PSK_METADATA_KEY = "x-karabo-presharedkey"
)

type PreSharedKey string

func (psk PreSharedKey) Authn(ctx context.Context) (authz bool) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if k := md.Get(PSK_METADATA_KEY); len(k) > 0 {
			authz = k[0] == string(psk)
		}
	}
	return authz
}

func (psk PreSharedKey) UnaryInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	if psk.Authn(ctx) {
		return handler(ctx, req)
	} else {
		return nil, status.Error(codes.Unauthenticated, codes.Unauthenticated.String())
	}
}

func (psk PreSharedKey) StreamInterceptor(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if psk.Authn(ss.Context()) {
		return handler(srv, ss)
	} else {
		return status.Error(codes.Unauthenticated, codes.Unauthenticated.String())
	}
}
