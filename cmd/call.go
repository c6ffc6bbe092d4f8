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
	"errors"
	"strings"
	"time"

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/European-XFEL/Karabo-sub014/pkg/client"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func NewCall() *cobra.Command {
	cmd := &cobra.Command{
		Args:  cobra.MinimumNArgs(2),
		RunE:  CallSlot,
		Short: "Call a slot of a remote instance and print the reply",
		Long: `Call a slot of a remote instance and print the reply.

Arguments are strings unless prefixed with a type name, e.g. DOUBLE:1.5 or
VECTOR_INT32:1,2,3. An argument of the form @path/to/file.xml is loaded as a
HASH.`,
		Use: "call [FLAGS] INSTANCE SLOT [ARG...]",
	}
	addClientFlags(cmd)
	cmd.Flags().String("format", "bin", "body format of the call: bin or xml")
	cmd.Flags().Duration("timeout", 10*time.Second, "time to wait for the reply")
	cmd.Flags().StringP("output", "o", "pretty", "one of: pretty, yaml, xml")
	return cmd
}

// addClientFlags adds the flags shared by commands talking to a peer. They
// override the client.* configuration keys.
func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("address", "", "host:port of the peer")
	cmd.Flags().String("as", "", "instance id to call as")
}

func bindClientFlags(cmd *cobra.Command, config *viper.Viper) error {
	for key, flag := range map[string]string{
		"client.address": "address",
		"client.name":    "as",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			if err := config.BindPFlag(key, f); err != nil {
				return helpers.WrapError(err, helpers.ConfigErrorCode)
			}
		}
	}
	return nil
}

func CallSlot(cmd *cobra.Command, args []string) error {

	ctx, config, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err = bindClientFlags(cmd, config); err != nil {
		return err
	}

	format, err := codec.ParseFormat(config.GetString("format"))
	if err != nil {
		return helpers.WrapError(err, helpers.ConfigErrorCode)
	}

	var slotArgs []any
	for _, a := range args[2:] {
		v, err := parseArg(ctx, a)
		if err != nil {
			return helpers.WrapError(err, helpers.ConfigErrorCode)
		}
		slotArgs = append(slotArgs, v)
	}

	if t := config.GetDuration("timeout"); t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	karabo, ccfg, err := helpers.Client(ctx, config)
	if err != nil {
		return err
	}
	defer func() {
		if e := karabo.Close(); e != nil {
			logger.Error("error closing client", zap.Error(e))
		}
	}()

	call, err := message.Call(ccfg.Name, args[0], args[1], slotArgs...)
	if err != nil {
		return helpers.WrapError(err, helpers.ConfigErrorCode)
	}
	call.SetFormat(format)

	reply, err := karabo.Call(ctx, call)
	if err != nil {
		var remote *client.RemoteError
		if errors.As(err, &remote) {
			cmd.PrintErrln(remote.Error())
		}
		return helpers.WrapError(err, helpers.FailureCode)
	}
	return printHash(cmd, config.GetString("output"), reply.Body)
}

// parseArg turns one command line argument into a slot argument.
func parseArg(ctx context.Context, arg string) (any, error) {
	if f, ok := strings.CutPrefix(arg, "@"); ok {
		return codec.LoadFile(ctx, f)
	}
	if name, text, ok := strings.Cut(arg, ":"); ok {
		if k, err := types.FromName(name); err == nil {
			return types.FromText(text, k)
		}
	}
	return arg, nil
}
