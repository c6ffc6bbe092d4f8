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

	"github.com/European-XFEL/Karabo-sub014/pkg/client"
	"github.com/spf13/viper"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

type ClientConfig struct {
	Address      string
	Name         string
	InstanceID   string
	Authority    string
	PreSharedKey Secret
}

// Client builds a connected client from the client.* keys of cfg.
func Client(ctx context.Context, cfg *viper.Viper) (client.Client, *ClientConfig, error) {

	ccfg := ClientConfig{
		Address:    cfg.GetString("client.address"),
		Name:       cfg.GetString("client.name"),
		InstanceID: cfg.GetString("client.instanceId"),
		Authority:  cfg.GetString("client.authority"),
		PreSharedKey: Secret{
			Value:   cfg.GetString("client.auth.presharedkey.value"),
			FromEnv: cfg.GetString("client.auth.presharedkey.fromEnv"),
		},
	}
	if ccfg.Address == "" {
		return nil, nil, NewError("client.address is required", ConfigErrorCode)
	}
	if ccfg.Name == "" {
		ccfg.Name = "karabo-cli"
	}

	var dopt []grpc.DialOption
	if cfg.IsSet("client.tls") {
		tcfg, err := ClientTLSConfig(Sub(cfg, "client.tls"))
		if err != nil {
			return nil, nil, err
		}
		dopt = append(dopt, grpc.WithTransportCredentials(credentials.NewTLS(tcfg)))
	} else {
		dopt = append(dopt, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if a := ccfg.Authority; a != "" {
		dopt = append(dopt, grpc.WithAuthority(a))
	}
	if psk := ccfg.PreSharedKey.Resolve(); psk != "" {
		dopt = append(dopt, client.WithPreSharedKey(psk))
	}

	opts := []client.ClientOption{client.WithDialOptions(dopt...)}
	if id := ccfg.InstanceID; id != "" {
		opts = append(opts, client.WithInstanceID(id))
	}
	c, err := client.New(ctx, ccfg.Address, opts...)
	if err != nil {
		return nil, nil, WrapError(err, ConfigErrorCode)
	}
	if err = c.Connect(ctx); err != nil {
		return nil, nil, WrapError(err, FailureCode)
	}
	return c, &ccfg, nil
}
