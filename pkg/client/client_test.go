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

package client_test

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/European-XFEL/Karabo-sub014/internal/api"
	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/client"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

var _ = Describe("Client", func() {

	var logger *zap.Logger
	BeforeEach(func() {
		z := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(GinkgoWriter),
			zapcore.DebugLevel)
		logger = zap.New(z, zap.AddCaller())
	})

	AfterEach(func() {
		_ = logger.Sync()
	})

	It("requires a connection", func(ctx context.Context) {
		karabo, err := client.New(ctx, "nowhere")
		Expect(err).NotTo(HaveOccurred())
		_, err = karabo.Check(ctx, "gui/1")
		Expect(err).To(MatchError(client.ErrNotConnected))
		Expect(karabo.Close()).To(Succeed())
	})

	Context("with connection", func() {

		var listener *bufconn.Listener
		var karabo client.Client
		var reg *prometheus.Registry
		BeforeEach(func(ctx context.Context) {
			var err error
			reg = prometheus.NewRegistry()
			karabo, err = client.New(ctx, "buffered",
				client.WithInstanceID("motor/1"),
				client.WithMetrics(reg),
				client.WithDialOptions(
					grpc.WithCredentialsBundle(insecure.NewBundle()),
					grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
						return listener.DialContext(ctx)
					}),
				))
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(karabo.Close()).To(Succeed())
		})

		var peer *Server
		var server *grpc.Server
		var serverErr error
		var serverWait sync.WaitGroup
		BeforeEach(func() {
			listener = bufconn.Listen(10 * 1024)
			peer = &Server{}
			server = grpc.NewServer()
			api.RegisterBrokerServer(server, peer)
			serverWait.Add(1)
			go func() {
				serverErr = server.Serve(listener)
				serverWait.Done()
			}()
		})

		AfterEach(func() {
			server.Stop()
			serverWait.Wait()
			Expect(serverErr).ToNot(HaveOccurred())
		})

		BeforeEach(func(ctx SpecContext) {
			Expect(karabo.Connect(ctx)).To(Succeed())
		})

		It("Checks", func(ctx context.Context) {
			info, err := api.CheckInfo("motor/1").Frame()
			Expect(err).NotTo(HaveOccurred())
			peer.On("Check", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				defer GinkgoRecover()
				md, ok := api.GetMetadataFromContext(args.Get(0).(context.Context))
				Expect(ok).To(BeTrue())
				Expect(md).To(Equal(api.Metadata{Peer: "gui/1", Instance: "motor/1"}))
				req, err := api.ParseInfo(args.Get(1).(*api.Frame))
				Expect(err).NotTo(HaveOccurred())
				Expect(req.InstanceID).To(Equal("gui/1"))
			}).Return(info, nil)

			got, err := karabo.Check(log.NewContext(ctx, logger), "gui/1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.InstanceID).To(Equal("motor/1"))
			Expect(testutil.GatherAndCount(reg, "karabo_client_checks")).To(Equal(1))
			peer.AssertExpectations(GinkgoT())
		})

		It("refuses incompatible peers", func(ctx context.Context) {
			info, err := (&api.Info{APIVersion: api.APIVersion + 1}).Frame()
			Expect(err).NotTo(HaveOccurred())
			peer.On("Check", mock.Anything, mock.Anything).Return(info, nil)

			_, err = karabo.Check(ctx, "gui/1")
			Expect(err).To(MatchError(client.IncompatibleError))
		})

		It("Calls", func(ctx context.Context) {
			call, err := message.Call("gui/1", "motor/1", "position")
			Expect(err).NotTo(HaveOccurred())
			peer.On("Call", mock.Anything, mock.Anything).Return(func(in *api.Frame) *api.Frame {
				defer GinkgoRecover()
				received, err := message.DecodeFrame(in.Data)
				Expect(err).NotTo(HaveOccurred())
				reply, err := received.Reply("motor/1", 12.5)
				Expect(err).NotTo(HaveOccurred())
				data, err := message.EncodeFrame(reply)
				Expect(err).NotTo(HaveOccurred())
				return api.NewFrame(data)
			}, nil)

			reply, err := karabo.Call(log.NewContext(ctx, logger), call)
			Expect(err).NotTo(HaveOccurred())
			v, err := reply.Arg(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(v.Data()).To(Equal(12.5))
			Expect(testutil.GatherAndCount(reg, "karabo_codec_documents")).To(BeNumerically(">", 0))
		})

		It("rejects replies to other calls", func(ctx context.Context) {
			call, err := message.Call("gui/1", "motor/1", "position")
			Expect(err).NotTo(HaveOccurred())
			other, err := message.Call("gui/1", "motor/1", "position")
			Expect(err).NotTo(HaveOccurred())
			reply, err := other.Reply("motor/1")
			Expect(err).NotTo(HaveOccurred())
			data, err := message.EncodeFrame(reply)
			Expect(err).NotTo(HaveOccurred())
			peer.On("Call", mock.Anything, mock.Anything).Return(api.NewFrame(data), nil)

			_, err = karabo.Call(ctx, call)
			Expect(err).To(HaveOccurred())
		})

		It("maps status codes", func(ctx context.Context) {
			call, err := message.Call("gui/1", "motor/1", "position")
			Expect(err).NotTo(HaveOccurred())
			peer.On("Call", mock.Anything, mock.Anything).Return(nil, status.Error(codes.NotFound, "unknown slot \"position\"")).Once()
			peer.On("Call", mock.Anything, mock.Anything).Return(nil, status.Error(codes.Internal, "boom")).Once()

			_, err = karabo.Call(ctx, call)
			Expect(err).To(MatchError(client.UnknownSlotError))
			_, err = karabo.Call(ctx, call)
			Expect(err).To(MatchError(client.UnhandledError))
			Expect(testutil.GatherAndCount(reg, "karabo_client_errors")).To(Equal(1))
		})

		It("Publishes", func(ctx context.Context) {
			peer.On("Publish", mock.Anything).Run(func(args mock.Arguments) {
				defer GinkgoRecover()
				stream := args.Get(0).(api.Broker_PublishServer)
				var n uint32
				for {
					f, err := stream.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					Expect(err).NotTo(HaveOccurred())
					signal, err := message.DecodeFrame(f.Data)
					Expect(err).NotTo(HaveOccurred())
					Expect(signal.Sender()).To(Equal("gui/1"))
					n++
				}
				ack, err := api.PublishAck(n)
				Expect(err).NotTo(HaveOccurred())
				Expect(stream.SendAndClose(ack)).To(Succeed())
			}).Return(nil)

			var signals []*message.Message
			for _, name := range []string{"signalA", "signalB", "signalC"} {
				s, err := message.Signal("gui/1", name, nil)
				Expect(err).NotTo(HaveOccurred())
				signals = append(signals, s)
			}
			received, err := karabo.Publish(log.NewContext(ctx, logger), "gui/1", signals...)
			Expect(err).NotTo(HaveOccurred())
			Expect(received).To(Equal(uint32(3)))
		}, SpecTimeout(2*time.Second))
	})
})

func TestClient(t *testing.T) {
	RegisterFailHandler(Fail)
	cfg, rep := GinkgoConfiguration()
	if d, ok := t.Deadline(); ok {
		cfg.Timeout = d.Sub(time.Now())
	}
	RunSpecs(t, "Client", cfg, rep)
}

type Server struct {
	mock.Mock
	api.UnimplementedBrokerServer
}

func frameOf(args mock.Arguments, in *api.Frame) *api.Frame {
	switch f := args.Get(0).(type) {
	case *api.Frame:
		return f
	case func(*api.Frame) *api.Frame:
		return f(in)
	}
	return nil
}

func (s *Server) Check(ctx context.Context, in *api.Frame) (*api.Frame, error) {
	args := s.MethodCalled("Check", ctx, in)
	return frameOf(args, in), args.Error(1)
}

func (s *Server) Call(ctx context.Context, in *api.Frame) (*api.Frame, error) {
	args := s.MethodCalled("Call", ctx, in)
	return frameOf(args, in), args.Error(1)
}

func (s *Server) Publish(stream api.Broker_PublishServer) error {
	return s.MethodCalled("Publish", stream).Error(0)
}
