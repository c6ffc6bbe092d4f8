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
	"errors"
	"io"

	"github.com/European-XFEL/Karabo-sub014/internal/api"
	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func New(opt Options) api.BrokerServer {
	srv := &server{}
	opt.apply(srv)
	return srv
}

type server struct {
	api.UnimplementedBrokerServer
	instanceID string
	lookup     SlotResolver
	signals    SignalHandler
	metrics    metrics.ServerCollector
	codecOpts  []codec.Option
}

func (s *server) unknownSlot(slot string) error {
	s.metrics.UnknownSlot(slot)
	return status.Errorf(codes.NotFound, "unknown slot %q", slot)
}

func (s *server) Check(ctx context.Context, in *api.Frame) (*api.Frame, error) {
	md, logger := setUp(ctx, "check")
	rmetrics := s.metrics.WithLabels(prometheus.Labels{"peer": md.Peer})
	info, err := api.ParseInfo(in)
	if err != nil {
		rmetrics.Erred()
		logger.Info("invalid check request", zap.Error(err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if info.APIVersion != api.APIVersion {
		rmetrics.Erred()
		logger.Info("peer api version mismatch", zap.Uint32("peerApiVersion", info.APIVersion))
		return nil, status.Errorf(codes.FailedPrecondition, "unsupported api version %d", info.APIVersion)
	}
	if md.Instance != "" && s.instanceID != "" && md.Instance != s.instanceID {
		rmetrics.Erred()
		return nil, status.Errorf(codes.NotFound, "instance %q is not served here", md.Instance)
	}
	out, err := api.CheckInfo(s.instanceID).Frame()
	if err != nil {
		rmetrics.Erred()
		logger.Error("error encoding check info", zap.Error(err))
		return nil, status.Error(codes.Internal, "unhandled error")
	}
	logger.Debug("check successful")
	rmetrics.Checked()
	return out, nil
}

func (s *server) Call(ctx context.Context, in *api.Frame) (*api.Frame, error) {
	_, logger := setUp(ctx, "call")

	call, err := message.DecodeFrame(in.Data, s.codecOpts...)
	if err != nil {
		s.metrics.WithLabels(prometheus.Labels{}).Erred()
		logger.Info("undecodable call", zap.Error(err))
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	logger = logger.With(zap.String("sender", call.Sender()))

	target, err := s.route(call)
	if err != nil {
		s.metrics.WithLabels(prometheus.Labels{"peer": call.Sender()}).Erred()
		logger.Info("unroutable call", zap.Error(err))
		return nil, err
	}
	if len(target.Functions) != 1 {
		s.metrics.WithLabels(prometheus.Labels{"peer": call.Sender()}).Erred()
		return nil, status.Errorf(codes.InvalidArgument, "a call names exactly one slot, got %d", len(target.Functions))
	}
	name := target.Functions[0]
	logger = logger.With(zap.String("slot", name))
	rmetrics := s.metrics.WithLabels(prometheus.Labels{"peer": call.Sender(), "slot": name})

	slot, ok := s.lookup(name)
	if !ok {
		rmetrics.Erred()
		logger.Info("peer called unknown slot")
		return nil, s.unknownSlot(name)
	}

	var reply *message.Message
	if args, e := slot(log.NewContext(ctx, logger), call); e == nil {
		if reply, err = call.Reply(target.ID, args...); err != nil {
			rmetrics.Erred()
			logger.Error("error building reply", zap.Error(err))
			return nil, status.Error(codes.Internal, "unhandled error")
		}
	} else {
		rmetrics.Erred()
		logger.Info("slot failed", zap.Error(e))
		reply = call.ReplyError(target.ID, e)
	}

	data, err := message.EncodeFrame(reply, s.codecOpts...)
	if err != nil {
		rmetrics.Erred()
		logger.Error("error encoding reply", zap.Error(err))
		return nil, status.Error(codes.Internal, "unhandled error")
	}
	logger.Debug("call handled")
	rmetrics.Called()
	return api.NewFrame(data), nil
}

// route picks the addressed instance this server answers for.
func (s *server) route(m *message.Message) (message.Target, error) {
	targets, err := m.SlotFunctions()
	if err != nil {
		return message.Target{}, status.Error(codes.InvalidArgument, err.Error())
	}
	for _, t := range targets {
		if s.instanceID == "" || t.ID == s.instanceID {
			return t, nil
		}
	}
	return message.Target{}, status.Errorf(codes.NotFound, "no addressed instance is served here")
}

func (s *server) Publish(ps api.Broker_PublishServer) error {
	ctx := ps.Context()
	md, logger := setUp(ctx, "publish")

	var received uint32
	for done := false; !done; {
		f, err := ps.Recv()
		if err != nil {
			done = true
			switch {
			case errors.Is(err, io.EOF):
				logger.Debug("all signals received", zap.Uint32("received", received))
			case errors.Is(err, context.Canceled):
				fallthrough
			case errors.Is(err, context.DeadlineExceeded):
				logger.Info("context canceled while receiving signals")
				return status.Error(codes.DeadlineExceeded, "deadline exceeded")
			default:
				s.metrics.WithLabels(prometheus.Labels{"peer": md.Peer}).Erred()
				logger.Error("error while receiving signals", zap.Error(err))
				return err
			}
			continue
		}
		signal, err := message.DecodeFrame(f.Data, s.codecOpts...)
		if err != nil {
			s.metrics.WithLabels(prometheus.Labels{"peer": md.Peer}).Erred()
			logger.Info("undecodable signal", zap.Error(err))
			return status.Error(codes.InvalidArgument, err.Error())
		}
		received++
		if err = s.dispatch(ctx, logger, signal); err != nil {
			return err
		}
	}

	ack, err := api.PublishAck(received)
	if err != nil {
		logger.Error("error encoding publish acknowledgement", zap.Error(err))
		return status.Error(codes.Internal, "unhandled error")
	}
	logger.Info("finished handling publish")
	return ps.SendAndClose(ack)
}

// dispatch delivers one signal to every connected slot of this instance, or
// to the signal handler when the signal names no instances. Failing slots
// are logged; signals expect no reply.
func (s *server) dispatch(ctx context.Context, logger *zap.Logger, signal *message.Message) error {
	logger = logger.With(zap.String("sender", signal.Sender()), zap.String("signal", signal.SignalFunction()))
	targets, err := signal.SlotFunctions()
	if err != nil {
		s.metrics.WithLabels(prometheus.Labels{"peer": signal.Sender()}).Erred()
		return status.Error(codes.InvalidArgument, err.Error())
	}

	if len(targets) == 0 {
		rmetrics := s.metrics.WithLabels(prometheus.Labels{"peer": signal.Sender()})
		if s.signals != nil {
			if err = s.signals(log.NewContext(ctx, logger), signal); err != nil {
				rmetrics.Erred()
				logger.Info("signal handler failed", zap.Error(err))
			}
		}
		rmetrics.Published()
		return nil
	}

	for _, t := range targets {
		if s.instanceID != "" && t.ID != s.instanceID {
			continue
		}
		for _, name := range t.Functions {
			rmetrics := s.metrics.WithLabels(prometheus.Labels{"peer": signal.Sender(), "slot": name})
			slot, ok := s.lookup(name)
			if !ok {
				rmetrics.Erred()
				s.metrics.UnknownSlot(name)
				logger.Info("signal connected to unknown slot", zap.String("slot", name))
				continue
			}
			if _, err = slot(log.NewContext(ctx, logger), signal); err != nil {
				rmetrics.Erred()
				logger.Info("slot failed", zap.String("slot", name), zap.Error(err))
				continue
			}
			rmetrics.Published()
		}
	}
	return nil
}

func setUp(ctx context.Context, call string) (api.Metadata, *zap.Logger) {
	logger := log.FromContext(ctx).With(zap.String("call", call))
	md := api.Metadata{}
	if d, ok := api.GetMetadataFromContext(ctx); ok {
		md = d
		logger = logger.With(zap.String("peer", md.Peer))
	}
	return md, logger
}

func ServerStreamWithContext(ss grpc.ServerStream, ctx context.Context) grpc.ServerStream {
	return &serverStreamWithContext{
		ServerStream: ss,
		ctx:          ctx,
	}
}

type serverStreamWithContext struct {
	grpc.ServerStream
	ctx context.Context
}

func (ssc *serverStreamWithContext) Context() context.Context {
	return ssc.ctx
}
