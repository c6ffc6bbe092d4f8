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
	"strings"

	"github.com/European-XFEL/Karabo-sub014/cmd/helpers"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/spf13/cobra"
)

func NewDump() *cobra.Command {
	cmd := &cobra.Command{
		Args:  cobra.ExactArgs(1),
		RunE:  Dump,
		Short: "Print a .xml or .bin file",
		Use:   "dump [FLAGS] FILE",
	}
	cmd.Flags().StringP("output", "o", "pretty", "one of: pretty, yaml, xml")
	return cmd
}

func Dump(cmd *cobra.Command, args []string) error {

	ctx, config, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	h, err := codec.LoadFile(ctx, args[0])
	if err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}
	return printHash(cmd, config.GetString("output"), h)
}

func printHash(cmd *cobra.Command, output string, h *hash.Hash) error {
	var text string
	switch strings.ToLower(output) {
	case "", "pretty":
		text = h.String()
	case "yaml":
		b, err := h.YAML()
		if err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
		text = string(b)
	case "xml":
		c, err := codec.New(codec.Xml, codec.WithIndent("  "))
		if err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
		b, err := c.Marshal(h)
		if err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
		text = string(b)
	default:
		return helpers.NewError("unrecognized output: "+output, helpers.ConfigErrorCode)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), strings.TrimRight(text, "\n")+"\n")
	return err
}
