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
	"fmt"
	"io"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger builds the logger described by the logging.* keys of cfg.
func Logger(writer io.Writer, cfg *viper.Viper) (*zap.Logger, error) {

	opt := log.DefaultOptions
	opt.Out = writer
	opt.Level = zapcore.InfoLevel // Default, set by PersistentFlags on root command
	if cfg != nil {
		if f := cfg.GetString("logging.format"); f != "" {
			opt.Format = f
		}
		if l := cfg.GetString("logging.level"); l != "" {
			if lvl, err := log.ParseLevel(l); err == nil {
				opt.Level = lvl
			} else {
				return nil, NewError(fmt.Sprintf("unrecognized log level: %s", l), ConfigErrorCode)
			}
		}
	}

	// Build logger from parsed options
	logger, err := log.NewLoggerWithOptions(opt)
	if err != nil {
		return nil, WrapError(err, ConfigErrorCode)
	}

	return logger, nil
}
