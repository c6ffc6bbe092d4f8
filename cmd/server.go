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

package cmd

import (
	"context"
	"crypto/x509"
	"net"
	"sync"
	"time"

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/European-XFEL/Karabo-sub014/internal/api"
	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/configmanager"
	"github.com/European-XFEL/Karabo-sub014/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

const DefaultInstanceID = "karabo/configurationManager"

func NewServer() *cobra.Command {
	cmd := &cobra.Command{
		RunE:  Serve,
		Short: "Serve the configuration manager to remote peers",
		Use:   "serve",
	}
	cmd.Flags().String("server.listen", ":44444", "address to accept broker calls on")
	cmd.Flags().String("server.instanceId", DefaultInstanceID, "instance id answering calls")
	cmd.Flags().String("server.metrics.listen", "", "address of the health and metrics endpoints")
	return cmd
}

func Serve(cmd *cobra.Command, args []string) error {

	ctx, config, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fail := func(msg string, err error) error {
		logger.Error(msg, zap.Error(err))
		return helpers.WrapError(err, helpers.FailureCode)
	}

	instanceID := config.GetString("server.instanceId")
	monitor, err := helpers.NewMonitor(instanceID)
	if err != nil {
		return fail("error initializing monitoring", err)
	}

	// Health and metrics endpoints are optional
	if addr := config.GetString("server.metrics.listen"); addr != "" {
		logger.Debug("starting monitoring endpoint", zap.String("addr", addr))
		ms, err := monitor.Listen(addr)
		if err != nil {
			return fail("error starting monitoring endpoint", err)
		}
		logger.Info("monitoring endpoint started", zap.Stringer("addr", ms.Addr()))
		defer func() {
			logger.Debug("stopping monitoring endpoint")
			ms.Stop()
			if e := ms.Err(); e != nil {
				logger.Error("monitoring endpoint error", zap.Error(e))
			}
		}()
	}

	var grpcOpts []grpc.ServerOption
	if config.IsSet("server.tls.crt") {
		if cfg, e := helpers.ServerTLSConfig(helpers.Sub(config, "server.tls")); e == nil {
			grpcOpts = append(grpcOpts, grpc.Creds(credentials.NewTLS(cfg)))
			logger := logger
			if len(cfg.Certificates) > 0 {
				if crt, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0]); err == nil {
					logger = logger.With(zap.String("subject", crt.Subject.String()))
				}
			}
			logger.Debug("TLS enabled", zap.String("TLSClientAuth", cfg.ClientAuth.String()))
		} else {
			return fail("error configuring tls", e)
		}
	}

	store, schemas, err := helpers.ConfigDB(ctx, helpers.Sub(config, "configdb"))
	if err != nil {
		return fail("error initializing configuration store", err)
	}
	defer func() {
		// ctx will most likely be canceled, so use background context
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ctx = log.NewContext(ctx, logger)
		logger.Debug("closing configuration store")
		if e := store.Close(ctx); e == nil {
			logger.Debug("configuration store closed")
		} else {
			logger.Error("error closing configuration store", zap.Error(e))
		}
	}()

	var mopts []configmanager.Option
	for deviceID, s := range schemas {
		mopts = append(mopts, configmanager.WithSchema(deviceID, s))
	}
	manager := configmanager.New(store, mopts...)

	uics := []grpc.UnaryServerInterceptor{
		func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
			ctx = log.NewContext(ctx, logger)
			return handler(ctx, req)
		},
	}
	sics := []grpc.StreamServerInterceptor{
		func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
			ctx := log.NewContext(ss.Context(), logger)
			return handler(srv, server.ServerStreamWithContext(ss, ctx))
		},
	}
	if config.IsSet("server.auth.presharedkey") {
		psk := helpers.Secret{
			Value:   config.GetString("server.auth.presharedkey.value"),
			FromEnv: config.GetString("server.auth.presharedkey.fromEnv"),
		}
		if k := psk.Resolve(); k != "" {
			logger.Debug("presharedkey authentication enabled")
			auth := server.PreSharedKey(k)
			uics = append(uics, auth.UnaryInterceptor)
			sics = append(sics, auth.StreamInterceptor)
		} else {
			return fail("error configuring authentication", helpers.NewError("server.auth.presharedkey is empty", helpers.ConfigErrorCode))
		}
	}
	grpcOpts = append(grpcOpts, grpc.ChainUnaryInterceptor(uics...), grpc.ChainStreamInterceptor(sics...))

	srv := grpc.NewServer(grpcOpts...)
	api.RegisterBrokerServer(srv, server.New(server.Options{
		InstanceID:   instanceID,
		SlotResolver: manager.Resolver(server.RegisteredSlot),
		Metrics:      monitor.Registry,
	}))

	var listener net.Listener
	if l, err := net.Listen("tcp", config.GetString("server.listen")); err == nil {
		listener = l
	} else {
		return fail("error starting TCP listener", err)
	}

	srvErr := make(chan error)
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func(out chan<- error) {
		defer wg.Done()
		defer close(out)
		logger.Info("starting server",
			zap.String("address", listener.Addr().String()),
			zap.String("instanceId", instanceID))
		if e := srv.Serve(listener); e != nil {
			out <- e
		}
		logger.Info("server stopped")
	}(srvErr)
	logger.Debug("ready")
	monitor.SetReady(true)

	select {
	case err := <-srvErr:
		wg.Wait()
		return fail("server error", err)
	case <-ctx.Done():
		monitor.SetReady(false)
		logger.Info("shutting down server")
		cancel()
		srv.GracefulStop()
	}
	wg.Wait()
	return nil
}
