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

package server_test

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/European-XFEL/Karabo-sub014/internal/api"
	"github.com/European-XFEL/Karabo-sub014/internal/helpers"
	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/client"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/server"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const instance = "motor/1"

// recorder collects the messages seen by test slots.
type recorder struct {
	sync.Mutex
	seen []string
}

func (r *recorder) add(s string) {
	r.Lock()
	defer r.Unlock()
	r.seen = append(r.seen, s)
}

func (r *recorder) all() []string {
	r.Lock()
	defer r.Unlock()
	return append([]string(nil), r.seen...)
}

func slots(rec *recorder) server.SlotResolver {
	table := map[string]server.Slot{
		"double": func(ctx context.Context, call *message.Message) ([]any, error) {
			v, err := call.Arg(0)
			if err != nil {
				return nil, err
			}
			return []any{2 * v.Data().(float64)}, nil
		},
		"fail": func(ctx context.Context, call *message.Message) ([]any, error) {
			return nil, errors.New("motor is locked")
		},
		"record": func(ctx context.Context, call *message.Message) ([]any, error) {
			rec.add(call.SignalFunction())
			return nil, nil
		},
	}
	return func(name string) (server.Slot, bool) {
		s, ok := table[name]
		return s, ok
	}
}

var _ = Describe("Server", func() {

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

	Context("with connection", func() {

		var listener *bufconn.Listener
		var karabo client.Client
		BeforeEach(func(ctx SpecContext) {
			listener = bufconn.Listen(10 * 1024)
			var err error
			karabo, err = client.New(ctx, "buffered", client.WithDialOptions(
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

		Context("with default server", func() {

			var gserver *grpc.Server
			var serverErr error
			var serverWait sync.WaitGroup
			var rec *recorder
			var broadcasts chan *message.Message
			var reg *prometheus.Registry
			BeforeEach(func(ctx SpecContext) {
				rec = new(recorder)
				broadcasts = make(chan *message.Message, 10)
				reg = prometheus.NewRegistry()
				gserver = grpc.NewServer(
					grpc.UnaryInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
						ctx = log.NewContext(ctx, logger)
						return handler(ctx, req)
					}),
					grpc.StreamInterceptor(func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
						ctx := log.NewContext(ss.Context(), logger)
						return handler(srv, server.ServerStreamWithContext(ss, ctx))
					}),
				)
				api.RegisterBrokerServer(gserver, server.New(server.Options{
					InstanceID:   instance,
					SlotResolver: slots(rec),
					SignalHandler: func(ctx context.Context, signal *message.Message) error {
						broadcasts <- signal
						return nil
					},
					Metrics: reg,
				}))
				serverWait.Add(1)
				go func() {
					defer serverWait.Done()
					serverErr = gserver.Serve(listener)
				}()
				Expect(karabo.Connect(ctx)).To(Succeed())
			})

			AfterEach(func() {
				gserver.Stop()
				serverWait.Wait()
				Expect(serverErr).ToNot(HaveOccurred())
			})

			It("handles check", func(ctx context.Context) {
				ctx = log.NewContext(ctx, logger)
				info, err := karabo.Check(ctx, "gui/1")
				Expect(err).NotTo(HaveOccurred())
				Expect(info.APIVersion).To(Equal(api.APIVersion))
				Expect(info.InstanceID).To(Equal(instance))
			})

			It("answers calls", func(ctx context.Context) {
				ctx = log.NewContext(ctx, logger)
				call, err := message.Call("gui/1", instance, "double", 21.0)
				Expect(err).NotTo(HaveOccurred())

				reply, err := karabo.Call(ctx, call)
				Expect(err).NotTo(HaveOccurred())
				Expect(reply.Sender()).To(Equal(instance))
				Expect(reply.ReplyFrom()).To(Equal(call.ReplyTo()))
				v, err := reply.Arg(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(v.Data()).To(Equal(42.0))

				Expect(testutil.GatherAndCount(reg, "karabo_server_calls")).To(Equal(1))
			})

			It("answers in the format of the call", func(ctx context.Context) {
				call, err := message.Call("gui/1", instance, "double", 1.5)
				Expect(err).NotTo(HaveOccurred())
				call.SetFormat(codec.Xml)

				reply, err := karabo.Call(ctx, call)
				Expect(err).NotTo(HaveOccurred())
				Expect(reply.Format()).To(Equal(codec.Xml))
			})

			It("returns slot failures as error replies", func(ctx context.Context) {
				call, err := message.Call("gui/1", instance, "fail")
				Expect(err).NotTo(HaveOccurred())

				reply, err := karabo.Call(ctx, call)
				var remote *client.RemoteError
				Expect(errors.As(err, &remote)).To(BeTrue())
				Expect(remote.Message).To(Equal("motor is locked"))
				Expect(reply.IsError()).To(BeTrue())
			})

			It("rejects unknown slots", func(ctx context.Context) {
				call, err := message.Call("gui/1", instance, "teleport")
				Expect(err).NotTo(HaveOccurred())

				_, err = karabo.Call(ctx, call)
				Expect(err).To(MatchError(client.UnknownSlotError))
				Expect(testutil.GatherAndCount(reg, "karabo_server_unknown_slots")).To(Equal(1))
			})

			It("rejects calls for other instances", func(ctx context.Context) {
				call, err := message.Call("gui/1", "motor/2", "double", 1.0)
				Expect(err).NotTo(HaveOccurred())

				_, err = karabo.Call(ctx, call)
				Expect(err).To(MatchError(client.UnknownSlotError))
			})

			It("rejects undecodable envelopes", func(ctx context.Context) {
				conn, err := grpc.DialContext(ctx, "buffered",
					grpc.WithCredentialsBundle(insecure.NewBundle()),
					grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
						return listener.DialContext(ctx)
					}))
				Expect(err).NotTo(HaveOccurred())
				defer conn.Close()

				_, err = api.NewBrokerClient(conn).Call(ctx, api.NewFrame([]byte{1, 2, 3}))
				Expect(status.Code(err)).To(Equal(codes.InvalidArgument))
			})

			It("delivers published signals", func(ctx context.Context) {
				ctx = log.NewContext(ctx, logger)
				targets := []message.Target{{ID: instance, Functions: []string{"record", "missing"}}}
				first, err := message.Signal("gui/1", "signalA", targets)
				Expect(err).NotTo(HaveOccurred())
				second, err := message.Signal("gui/1", "signalB", targets)
				Expect(err).NotTo(HaveOccurred())
				elsewhere, err := message.Signal("gui/1", "signalC", []message.Target{{ID: "motor/9", Functions: []string{"record"}}})
				Expect(err).NotTo(HaveOccurred())
				broadcast, err := message.Signal("gui/1", "signalChanged", nil, hash.MustBuild("position", 1.0))
				Expect(err).NotTo(HaveOccurred())

				received, err := karabo.Publish(ctx, "gui/1", first, second, elsewhere, broadcast)
				Expect(err).NotTo(HaveOccurred())
				Expect(received).To(Equal(uint32(4)))
				Expect(rec.all()).To(Equal([]string{"signalA", "signalB"}))
				Eventually(broadcasts).Should(Receive(WithTransform(func(m *message.Message) string {
					return m.SignalFunction()
				}, Equal("signalChanged"))))
			}, SpecTimeout(2*time.Second))
		})

		Context("with the slot registry", func() {

			var gserver *grpc.Server
			var serverWait sync.WaitGroup
			BeforeEach(func(ctx SpecContext) {
				Expect(server.RegisterSlot("ping", func(ctx context.Context, call *message.Message) ([]any, error) {
					return []any{"pong"}, nil
				})).To(BeTrue())
				gserver = grpc.NewServer()
				api.RegisterBrokerServer(gserver, server.New(server.DefaultOptions))
				serverWait.Add(1)
				go func() {
					defer serverWait.Done()
					_ = gserver.Serve(listener)
				}()
				Expect(karabo.Connect(ctx)).To(Succeed())
			})

			AfterEach(func() {
				gserver.Stop()
				serverWait.Wait()
				Expect(server.DeregisterSlot("ping")).To(BeTrue())
				Expect(server.DeregisterSlot("ping")).To(BeFalse())
			})

			It("serves registered slots for any instance", func(ctx context.Context) {
				Expect(server.RegisterSlot("ping", nil)).To(BeFalse())
				call, err := message.Call("gui/1", "anything/1", "ping")
				Expect(err).NotTo(HaveOccurred())

				reply, err := karabo.Call(ctx, call)
				Expect(err).NotTo(HaveOccurred())
				Expect(reply.Sender()).To(Equal("anything/1"))
				v, err := reply.Arg(0)
				Expect(err).NotTo(HaveOccurred())
				Expect(v.Data()).To(Equal("pong"))
			})
		})
	})

	Context("with preshared key", func() {

		psk := "The pool on the roof must have a leak."

		var listener *bufconn.Listener
		var serverCert *tls.Certificate
		var dial []grpc.DialOption
		BeforeEach(func() {
			listener = bufconn.Listen(10 * 1024)
			if c, e := helpers.SelfSignedCertificate("karabo", "karabo"); e == nil {
				serverCert = c
			} else {
				Expect(e).NotTo(HaveOccurred())
			}
			dial = []grpc.DialOption{
				grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
					return listener.DialContext(ctx)
				}),
				grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{RootCAs: helpers.CertPool(serverCert)})),
				grpc.WithAuthority("karabo"),
			}
		})

		Context("with TLS server", func() {

			var gserver *grpc.Server
			var serverErr error
			var serverWait sync.WaitGroup
			BeforeEach(func() {
				psk := server.PreSharedKey(psk)
				gserver = grpc.NewServer(
					grpc.Creds(credentials.NewTLS(&tls.Config{
						Certificates: []tls.Certificate{*serverCert},
						ClientAuth:   tls.NoClientCert,
					})),
					grpc.ChainUnaryInterceptor(
						func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
							ctx = log.NewContext(ctx, logger)
							return handler(ctx, req)
						},
						psk.UnaryInterceptor,
					),
					grpc.ChainStreamInterceptor(
						func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
							ctx := log.NewContext(ss.Context(), logger)
							return handler(srv, server.ServerStreamWithContext(ss, ctx))
						},
						psk.StreamInterceptor,
					),
				)
				api.RegisterBrokerServer(gserver, server.New(server.Options{InstanceID: instance}))
				serverWait.Add(1)
				go func() {
					defer serverWait.Done()
					serverErr = gserver.Serve(listener)
				}()
			})

			AfterEach(func() {
				gserver.Stop()
				serverWait.Wait()
				Expect(serverErr).ToNot(HaveOccurred())
			})

			It("handles check", func(ctx context.Context) {
				karabo, err := client.New(ctx, "buffered", client.WithDialOptions(append(dial, client.WithPreSharedKey(psk))...))
				Expect(err).NotTo(HaveOccurred())
				defer karabo.Close()
				Expect(karabo.Connect(ctx)).To(Succeed())

				info, err := karabo.Check(log.NewContext(ctx, logger), "gui/1")
				Expect(err).NotTo(HaveOccurred())
				Expect(info.InstanceID).To(Equal(instance))
			})

			It("refuses a wrong key", func(ctx context.Context) {
				karabo, err := client.New(ctx, "buffered", client.WithDialOptions(append(dial, client.WithPreSharedKey("guess"))...))
				Expect(err).NotTo(HaveOccurred())
				defer karabo.Close()
				Expect(karabo.Connect(ctx)).To(Succeed())

				_, err = karabo.Check(ctx, "gui/1")
				Expect(err).To(MatchError(client.UnauthorizedError))
			})
		})
	})
})

func TestServer(t *testing.T) {
	RegisterFailHandler(Fail)
	cfg, rep := GinkgoConfiguration()
	if d, ok := t.Deadline(); ok {
		cfg.Timeout = d.Sub(time.Now())
	}
	RunSpecs(t, "Server", cfg, rep)
}
