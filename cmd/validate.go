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
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/validator"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewValidate() *cobra.Command {
	cmd := &cobra.Command{
		Args:  cobra.ExactArgs(1),
		RunE:  Validate,
		Short: "Validate a configuration file against a schema file",
		Use:   "validate --schema SCHEMA [FLAGS] CONFIG",
	}
	cmd.Flags().String("schema", "", "path/to/schema.xml")
	cmd.Flags().Bool("inject-defaults", true, "fill in missing keys that have defaults")
	cmd.Flags().Bool("allow-additional", false, "keep keys unknown to the schema")
	cmd.Flags().Bool("allow-missing", false, "tolerate missing mandatory keys")
	cmd.Flags().Bool("require-root", false, "require the configuration to be wrapped in the schema root")
	cmd.Flags().Bool("timestamps", false, "stamp validated leaves with the current time")
	cmd.Flags().String("state", "", "check allowed states against this device state")
	cmd.Flags().Bool("best-effort", false, "write the partial result to --out even if there are violations")
	cmd.Flags().String("out", "", "write the validated configuration to this .xml or .bin file")
	cmd.Flags().StringP("output", "o", "", "print the validated configuration: pretty, yaml or xml")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

func Validate(cmd *cobra.Command, args []string) error {

	ctx, config, logger, err := setUp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	s, err := codec.LoadSchemaFile(ctx, config.GetString("schema"))
	if err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}
	in, err := codec.LoadFile(ctx, args[0])
	if err != nil {
		return helpers.WrapError(err, helpers.FailureCode)
	}

	rules := validator.Rules{
		InjectDefaults:             config.GetBool("inject-defaults"),
		AllowUnrootedConfiguration: !config.GetBool("require-root"),
		AllowAdditionalKeys:        config.GetBool("allow-additional"),
		AllowMissingKeys:           config.GetBool("allow-missing"),
		InjectTimestamps:           config.GetBool("timestamps"),
		CurrentState:               config.GetString("state"),
		BestEffort:                 config.GetBool("best-effort"),
	}
	out, err := validator.New(rules).Validate(s, in)
	if err != nil {
		if f := config.GetString("out"); f != "" && out != nil {
			if e := codec.SaveFile(ctx, f, out); e != nil {
				logger.Error("error saving partial result", zap.Error(e))
			}
		}
		if vs, ok := validator.AsViolations(err); ok {
			for _, v := range vs {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			logger.Info("configuration is invalid", zap.Int("violations", len(vs)))
			return helpers.WrapError(fmt.Errorf("%d violation(s) of schema %s", len(vs), s.RootName()), helpers.FailureCode)
		}
		return helpers.WrapError(err, helpers.FailureCode)
	}

	if f := config.GetString("out"); f != "" {
		if err = codec.SaveFile(ctx, f, out); err != nil {
			return helpers.WrapError(err, helpers.FailureCode)
		}
	}
	if o := config.GetString("output"); o != "" {
		return printHash(cmd, o, out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OK")
	return nil
}

