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

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

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

var (
	UnhandledError     = errors.New("an unhandled gRPC error occurred")
	UnknownSlotError   = errors.New("unknown slot")
	RejectedError      = errors.New("request rejected by peer")
	UnauthorizedError  = errors.New("peer refused credentials")
	IncompatibleError  = errors.New("incompatible peer")
	ErrNotConnected    = errors.New("Connect() must be called before client operations")
	errUnexpectedReply = errors.New("unexpected reply")
)

// RemoteError is returned by Call when the remote slot answered with an
// error reply.
type RemoteError struct {
	Sender  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Sender, e.Message)
}

type Client interface {
	io.Closer
	Connect(ctx context.Context) error
	Check(ctx context.Context, as string) (*api.Info, error)
	Call(ctx context.Context, call *message.Message) (*message.Message, error)
	Publish(ctx context.Context, as string, signals ...*message.Message) (uint32, error)
}

func New(ctx context.Context, target string, opt ...ClientOption) (Client, error) {
	c := &client{
		serverName:    target,
		serverAddress: target,
		metrics:       metrics.ForClient(nil), // Default to the NOP collector
	}
	for i := range opt {
		if err := opt[i](c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type client struct {
	sync.RWMutex
	serverName    string
	serverAddress string
	instanceID    string
	dialOpts      []grpc.DialOption
	codecOpts     []codec.Option
	conn          *grpc.ClientConn
	broker        api.BrokerClient
	metrics       metrics.Collector
}

func (c *client) collector(slot string) metrics.RequestMetricsCollector {
	return c.metrics.WithLabels(prometheus.Labels{
		"peer": c.serverName,
		"slot": slot,
	})
}

func (c *client) outgoing(ctx context.Context, as string) context.Context {
	return api.OutgoingContext(ctx, api.Metadata{Peer: as, Instance: c.instanceID})
}

func (c *client) Connect(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()
	logger := log.FromContext(ctx).With(zap.String("peer", c.serverAddress))
	logger.Debug("initializing connection")
	if cc, err := grpc.DialContext(ctx, c.serverAddress, c.dialOpts...); err == nil {
		logger.Debug("connection successfully established")
		c.conn = cc
		c.broker = api.NewBrokerClient(cc)
		return nil
	} else {
		if errors.Is(err, context.Canceled) {
			logger.Info("context canceled while connecting")
		} else {
			logger.Error("error connecting to peer", zap.Error(err))
		}
		return err
	}
}

func (c *client) Check(ctx context.Context, as string) (*api.Info, error) {

	c.RLock()
	defer c.RUnlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	logger := log.FromContext(ctx).With(zap.String("peer", c.serverAddress), zap.String("as", as), zap.String("call", "check"))
	logger.Debug("checking peer")
	rmetrics := c.collector("")
	req, err := api.CheckInfo(as).Frame()
	if err != nil {
		return nil, err
	}
	res, err := c.broker.Check(c.outgoing(ctx, as), req)
	if err != nil {
		rmetrics.Erred()
		return nil, parseError(logger, err)
	}
	info, err := api.ParseInfo(res)
	if err != nil {
		rmetrics.Erred()
		logger.Error("invalid check response", zap.Error(err))
		return nil, err
	}
	if info.APIVersion != api.APIVersion {
		rmetrics.Erred()
		return nil, fmt.Errorf("%w: api version %d", IncompatibleError, info.APIVersion)
	}
	logger.Info("peer check successful", zap.Uint32("peerApiVersion", info.APIVersion), zap.String("instanceId", info.InstanceID))
	rmetrics.Checked()
	return info, nil
}

// Call sends a slot call and waits for its reply. An error reply is returned
// together with a *RemoteError.
func (c *client) Call(ctx context.Context, call *message.Message) (*message.Message, error) {

	if call == nil {
		panic("call must not be nil")
	}

	c.RLock()
	defer c.RUnlock()
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	var slot string
	if targets, err := call.SlotFunctions(); err != nil {
		return nil, err
	} else if len(targets) > 0 && len(targets[0].Functions) > 0 {
		slot = targets[0].Functions[0]
	}
	rmetrics := c.collector(slot)
	logger := log.FromContext(ctx).With(zap.String("peer", c.serverAddress), zap.String("as", call.Sender()), zap.String("slot", slot), zap.String("call", "call"))

	data, err := message.EncodeFrame(call, c.codecOpts...)
	if err != nil {
		rmetrics.Erred()
		return nil, err
	}
	logger.Debug("calling slot")
	res, err := c.broker.Call(c.outgoing(ctx, call.Sender()), api.NewFrame(data))
	if err != nil {
		rmetrics.Erred()
		return nil, parseError(logger, err)
	}
	reply, err := message.DecodeFrame(res.Data, c.codecOpts...)
	if err != nil {
		rmetrics.Erred()
		logger.Error("undecodable reply", zap.Error(err))
		return nil, err
	}
	if !reply.IsReply() || reply.ReplyFrom() != call.ReplyTo() {
		rmetrics.Erred()
		return nil, fmt.Errorf("%w: %s answering %q", errUnexpectedReply, reply.SignalFunction(), reply.ReplyFrom())
	}
	rmetrics.Called()
	if reply.IsError() {
		logger.Info("slot answered with an error", zap.String("error", reply.Error()))
		return reply, &RemoteError{Sender: reply.Sender(), Message: reply.Error()}
	}
	logger.Debug("reply received")
	return reply, nil
}

// Publish streams signals to the peer and returns how many it accepted.
func (c *client) Publish(ctx context.Context, as string, signals ...*message.Message) (uint32, error) {

	c.RLock()
	defer c.RUnlock()
	if c.conn == nil {
		return 0, ErrNotConnected
	}

	rmetrics := c.collector("")
	logger := log.FromContext(ctx).With(zap.String("peer", c.serverAddress), zap.String("as", as), zap.String("call", "publish"))
	logger.Debug("publishing to peer")
	var publish api.Broker_PublishClient
	if pc, err := c.broker.Publish(c.outgoing(ctx, as)); err == nil {
		publish = pc
	} else {
		rmetrics.Erred()
		return 0, parseError(logger, err)
	}

	for _, s := range signals {
		data, err := message.EncodeFrame(s, c.codecOpts...)
		if err != nil {
			rmetrics.Erred()
			_ = publish.CloseSend()
			return 0, err
		}
		if err = publish.Send(api.NewFrame(data)); err != nil {
			if errors.Is(err, io.EOF) {
				// the server ended the stream; its status arrives with CloseAndRecv
				break
			}
			rmetrics.Erred()
			logger.Error("error sending signal", zap.Error(err))
			return 0, parseError(logger, err)
		}
		rmetrics.Published()
	}

	ack, err := publish.CloseAndRecv()
	if err != nil {
		rmetrics.Erred()
		return 0, parseError(logger, err)
	}
	received, err := api.ParsePublishAck(ack)
	if err != nil {
		rmetrics.Erred()
		return 0, err
	}
	logger.Debug("signals published", zap.Uint32("received", received))
	return received, nil
}

func (c *client) Close() (err error) {
	c.Lock()
	defer c.Unlock()
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
		c.broker = nil
	}
	return err
}

func parseError(logger *zap.Logger, err error) error {
	if s, ok := status.FromError(err); ok {
		logger.Error("broker call failed", zap.Uint32("code", uint32(s.Code())), zap.String("msg", s.Message()))
		switch s.Code() {
		case codes.NotFound:
			return fmt.Errorf("%w: %s", UnknownSlotError, s.Message())
		case codes.InvalidArgument:
			return fmt.Errorf("%w: %s", RejectedError, s.Message())
		case codes.Unauthenticated:
			return UnauthorizedError
		case codes.FailedPrecondition:
			return fmt.Errorf("%w: %s", IncompatibleError, s.Message())
		case codes.Canceled:
			return context.Canceled
		case codes.DeadlineExceeded:
			return context.DeadlineExceeded
		}
		return UnhandledError
	} else if errors.Is(err, context.Canceled) {
		logger.Info("context canceled")
		return err
	} else if errors.Is(err, context.DeadlineExceeded) {
		logger.Info("context deadline exceeded")
		return err
	} else {
		logger.Error("broker call failed with unknown error", zap.Error(err))
		return err
	}
}
