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
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix scopes the environment of the Karabo hash service: server.listen
// is read from KARABO_SERVER_LISTEN.
const EnvPrefix = "karabo"

// ConfigEnv names one configuration file when --config is not given.
const ConfigEnv = "KARABO_CONFIG"

// Config layers the service settings of cmd: defaults of its flags, then the
// configuration files, then KARABO_* variables, then flags set explicitly.
func Config(cmd *cobra.Command) (*viper.Viper, error) {
	if cmd == nil {
		panic("cmd must not be nil")
	}

	cfg := viper.New()
	cfg.SetEnvPrefix(EnvPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	for _, file := range configFiles(cmd) {
		cfg.SetConfigFile(file)
		if err := cfg.MergeInConfig(); err != nil {
			return nil, WrapError(err, ConfigErrorCode)
		}
	}
	if err := cfg.BindPFlags(cmd.Flags()); err != nil {
		return nil, WrapError(err, ConfigErrorCode)
	}
	return cfg, nil
}

func configFiles(cmd *cobra.Command) []string {
	if files, _ := cmd.Flags().GetStringSlice("config"); len(files) > 0 {
		return files
	}
	if file := os.Getenv(ConfigEnv); file != "" {
		return []string{file}
	}
	return nil
}

// Sub is viper.Sub that never returns nil.
func Sub(cfg *viper.Viper, key string) *viper.Viper {
	if s := cfg.Sub(key); s != nil {
		return s
	}
	return viper.New()
}

// Secret is a credential such as a pre-shared key or a database DSN, given
// inline or through the environment variable FromEnv.
type Secret struct {
	Value   string
	FromEnv string
}

// Resolve returns Value, falling back to the FromEnv variable.
func (s *Secret) Resolve() string {
	if s.Value != "" {
		return s.Value
	}
	if s.FromEnv == "" {
		return ""
	}
	return os.Getenv(s.FromEnv)
}
