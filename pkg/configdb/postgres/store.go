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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ConnectionConfig struct {
	ConnectionString string
	Table            string
}

const DefaultTable = "public.karabo_configurations"

var configTableVersion = "v1.0.0"

var configTableSQL = `create table %%TABLE_NAME%% (
    device_id varchar not null,
    name varchar not null,
    description varchar not null default '',
    saved timestamptz not null,
    config bytea not null,
    primary key (device_id, name)
)
`

func New(ctx context.Context, cfg ConnectionConfig) (configdb.Store, error) {

	logger := log.FromContext(ctx)

	var pool *pgxpool.Pool
	if c, err := pgxpool.ParseConfig(cfg.ConnectionString); err == nil {
		if pool, err = pgxpool.NewWithConfig(ctx, c); err != nil {
			return nil, configdb.NewDatabaseError(err)
		}
	} else {
		return nil, configdb.NewDatabaseError(err)
	}

	table := DefaultTable
	if t := cfg.Table; t != "" {
		table = t
	}

	if err := bootstrap(ctx, logger, pool, table); err != nil {
		pool.Close()
		return nil, err
	}

	return newStore(pool, table), nil
}

// bootstrap creates the configuration table unless a table carrying the
// current version comment exists.
func bootstrap(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool, table string) error {

	logger.Debug("determining current configuration table version")
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return configdb.NewDatabaseError(err)
	}
	defer conn.Release()

	var comment *string
	if err = conn.QueryRow(ctx, fmt.Sprintf("SELECT obj_description('%s'::regclass)", table)).Scan(&comment); err != nil {
		perr := &pgconn.PgError{}
		if !errors.As(err, &perr) || perr.Code != "42P01" {
			logger.Error("error reading configuration table comment", zap.Error(err))
			return configdb.NewDatabaseError(err)
		}
	}

	switch {
	case comment != nil && *comment == configTableVersion:
		logger.Info("configuration table already exists")
	case comment == nil || *comment == "":
		logger.Debug("creating configuration table")
		if _, err = conn.Exec(ctx, strings.Replace(configTableSQL, "%%TABLE_NAME%%", table, -1)); err != nil {
			logger.Error("error creating configuration table", zap.Error(err))
			return configdb.NewDatabaseError(err)
		}
		if _, err = conn.Exec(ctx, fmt.Sprintf("comment on table %s is '%s'", table, configTableVersion)); err != nil {
			logger.Error("error commenting configuration table", zap.Error(err))
			return configdb.NewDatabaseError(err)
		}
		logger.Info("successfully created configuration table", zap.String("table", table), zap.String("version", configTableVersion))
	default:
		logger.Error("unrecognized configuration table comment", zap.String("comment", *comment))
		return configdb.NewDatabaseError(errors.New("unrecognized configuration table comment"))
	}
	return nil
}

func newStore(pool *pgxpool.Pool, table string) *pgxStore {
	return &pgxStore{
		Pool:            pool,
		table:           table,
		saveStatement:   fmt.Sprintf("INSERT INTO %s (device_id, name, description, saved, config) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (device_id, name) DO UPDATE SET description = EXCLUDED.description, saved = EXCLUDED.saved, config = EXCLUDED.config", table),
		getQuery:        fmt.Sprintf("SELECT description, saved, config FROM %s WHERE device_id = $1 AND name = $2", table),
		listQuery:       fmt.Sprintf("SELECT name, description, saved FROM %s WHERE device_id = $1 ORDER BY name", table),
		deleteStatement: fmt.Sprintf("DELETE FROM %s WHERE device_id = $1 AND name = $2", table),
	}
}

type pgxStore struct {
	*pgxpool.Pool
	table           string
	saveStatement   string
	getQuery        string
	listQuery       string
	deleteStatement string
}

func (p *pgxStore) Save(ctx context.Context, rec *configdb.Record) error {
	if err := configdb.Validate(rec); err != nil {
		return err
	}
	data, err := configdb.Encode(rec.Config)
	if err != nil {
		return err
	}
	if _, err = p.Exec(ctx, p.saveStatement, rec.DeviceID, rec.Name, rec.Description, rec.Saved.Time(), data); err != nil {
		log.FromContext(ctx).Error("error saving configuration", zap.String("deviceId", rec.DeviceID), zap.String("name", rec.Name), zap.Error(err))
		return configdb.NewDatabaseError(err)
	}
	return nil
}

func (p *pgxStore) Get(ctx context.Context, deviceID, name string) (*configdb.Record, error) {
	rec := &configdb.Record{DeviceID: deviceID, Name: name}
	var saved time.Time
	var data []byte
	if err := p.QueryRow(ctx, p.getQuery, deviceID, name).Scan(&rec.Description, &saved, &data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, configdb.NewNotFoundError(deviceID, name)
		}
		return nil, configdb.NewDatabaseError(err)
	}
	config, err := configdb.Decode(data)
	if err != nil {
		return nil, err
	}
	rec.Saved = timestamp.FromTime(saved, 0)
	rec.Config = config
	return rec, nil
}

func (p *pgxStore) List(ctx context.Context, deviceID string) ([]configdb.Info, error) {
	rows, err := p.Query(ctx, p.listQuery, deviceID)
	if err != nil {
		return nil, configdb.NewDatabaseError(err)
	}
	defer rows.Close()
	out := make([]configdb.Info, 0)
	for rows.Next() {
		info := configdb.Info{DeviceID: deviceID}
		var saved time.Time
		if err = rows.Scan(&info.Name, &info.Description, &saved); err != nil {
			return nil, configdb.NewDatabaseError(err)
		}
		info.Saved = timestamp.FromTime(saved, 0)
		out = append(out, info)
	}
	if err = rows.Err(); err != nil {
		return nil, configdb.NewDatabaseError(err)
	}
	return out, nil
}

func (p *pgxStore) Delete(ctx context.Context, deviceID, name string) error {
	tag, err := p.Exec(ctx, p.deleteStatement, deviceID, name)
	if err != nil {
		return configdb.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return configdb.NewNotFoundError(deviceID, name)
	}
	return nil
}

// Close closes all pooled connections. It returns early with the context's
// error if ctx ends first.
func (p *pgxStore) Close(ctx context.Context) error {
	done := make(chan interface{})
	go func() {
		p.Pool.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
