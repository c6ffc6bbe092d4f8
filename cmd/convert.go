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
	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewConvert() *cobra.Command {
	cmd := &cobra.Command{
		Args:  cobra.ExactArgs(2),
		RunE:  Convert,
		Short: "Convert between .xml and .bin files",
		Use:   "convert [FLAGS] IN OUT",
	}
	cmd.Flags().Bool("schema", false, "treat IN as a schema file")
	return cmd
}

func Convert(cmd *cobra.Command, args []string) error {

	ctx, _, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	in, out := args[0], args[1]
	logger = logger.With(zap.String("in", in), zap.String("out", out))

	if asSchema, _ := cmd.Flags().GetBool("schema"); asSchema {
		s, err := codec.LoadSchemaFile(ctx, in)
		if err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
		if err = codec.SaveSchemaFile(ctx, out, s); err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
		logger.Info("schema converted")
		return nil
	}

	h, err := codec.LoadFile(ctx, in)
	if err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}
	if err = codec.SaveFile(ctx, out, h); err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}
	logger.Info("file converted")
	return nil
}
