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
	"fmt"

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewChecker() *cobra.Command {
	cmd := &cobra.Command{
		Args:  cobra.NoArgs,
		RunE:  Check,
		Short: "Check remote peers",
		Use:   "check [FLAGS]",
	}
	addClientFlags(cmd)
	return cmd
}

func Check(cmd *cobra.Command, args []string) error {

	ctx, config, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err = bindClientFlags(cmd, config); err != nil {
		return err
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

	info, err := karabo.Check(ctx, ccfg.Name)
	if err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s api=%d\n", info.InstanceID, info.APIVersion)
	return err
}
