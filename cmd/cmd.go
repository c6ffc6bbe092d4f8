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

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Version string

func New() *cobra.Command {
	cmd := &cobra.Command{
		SilenceErrors: true,
		SilenceUsage:  true,
		Use:           "karabo [FLAGS] COMMAND",
		Short:         "Inspect, convert and serve Karabo data",
		Version:       Version,
	}
	cmd.PersistentFlags().StringSlice("config", nil, "configuration files of the hash service, merged in order (default $KARABO_CONFIG)")
	cmd.PersistentFlags().String("logging.level", "warn", "one of: debug, info, warn, error, fatal")
	cmd.PersistentFlags().String("logging.format", "text", "one of: text, json")
	cmd.AddCommand(NewConvert(), NewValidate(), NewDump(), NewServer(), NewCall(), NewChecker())
	return cmd
}

// setUp parses the configuration and returns a context carrying the logger.
// Logs go to stderr so that command output stays parseable.
func setUp(cmd *cobra.Command) (context.Context, *viper.Viper, *zap.Logger, error) {

	config, err := helpers.Config(cmd)
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := helpers.Logger(cmd.ErrOrStderr(), config)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return log.NewContext(ctx, logger), config, logger, nil
}
