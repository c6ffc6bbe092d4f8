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
	"path/filepath"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb/postgres"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type PostgresStoreFactory func(ctx context.Context, config postgres.ConnectionConfig) (configdb.Store, error)

var (
	postgresFactory PostgresStoreFactory
)

func init() {
	ResetPostgresStoreFactory()
}

func OverridePostgresStoreFactory(factory PostgresStoreFactory) {
	postgresFactory = factory
}

func ResetPostgresStoreFactory() {
	postgresFactory = postgres.New
}

type ConfigDBConfig struct {
	Postgres *struct {
		Connection Secret
		Table      string
	}
	// Schemas maps device ids to schema files.
	Schemas map[string]string
}

// ConfigDB opens the configured store, falling back to process memory when
// no database is configured.
func ConfigDB(ctx context.Context, cfg *viper.Viper) (configdb.Store, map[string]*schema.Schema, error) {

	logger := log.FromContext(ctx)

	dcfg := ConfigDBConfig{}
	if cfg != nil {
		if err := cfg.Unmarshal(&dcfg); err != nil {
			return nil, nil, WrapError(err, ConfigErrorCode)
		}
	}

	schemas := make(map[string]*schema.Schema, len(dcfg.Schemas))
	for deviceID, file := range dcfg.Schemas {
		s, err := codec.LoadSchemaFile(ctx, filepath.Clean(file))
		if err != nil {
			return nil, nil, WrapError(err, ConfigErrorCode)
		}
		logger.Debug("loaded device schema", zap.String("deviceId", deviceID), zap.String("file", file))
		schemas[deviceID] = s
	}

	if pg := dcfg.Postgres; pg != nil {
		conn := pg.Connection.Resolve()
		if conn == "" {
			return nil, nil, NewError("configdb.postgres.connection is empty", ConfigErrorCode)
		}
		store, err := postgresFactory(ctx, postgres.ConnectionConfig{
			ConnectionString: conn,
			Table:            pg.Table,
		})
		if err != nil {
			return nil, nil, WrapError(err, FailureCode)
		}
		logger.Info("using postgres configuration store")
		return store, schemas, nil
	}

	logger.Info("using in-memory configuration store")
	return configdb.NewMemoryStore(), schemas, nil
}
