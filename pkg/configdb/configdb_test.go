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

package configdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/European-XFEL/Karabo-sub014/pkg/configdb"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(device, name string, speed float64) *configdb.Record {
	return &configdb.Record{
		DeviceID: device,
		Name:     name,
		Saved:    timestamp.Timestamp{Sec: 1700000000, Frac: 5},
		Config:   hash.MustBuild("speed", speed, "axis.name", "x"),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	// Given
	store := configdb.NewMemoryStore()
	defer store.Close(ctx)
	require.NoError(t, store.Save(ctx, record("motor/1", "slow", 1)))
	require.NoError(t, store.Save(ctx, record("motor/1", "fast", 9)))
	require.NoError(t, store.Save(ctx, record("motor/2", "fast", 7)))

	// When
	got, err := store.Get(ctx, "motor/1", "fast")

	// Then
	require.NoError(t, err)
	assert.True(t, got.Config.Equal(hash.MustBuild("speed", 9.0, "axis.name", "x")))
	assert.Equal(t, timestamp.Timestamp{Sec: 1700000000, Frac: 5}, got.Saved)

	infos, err := store.List(ctx, "motor/1")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "fast", infos[0].Name)
	assert.Equal(t, "slow", infos[1].Name)

	empty, err := store.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStoreCopies(t *testing.T) {
	ctx := context.Background()
	store := configdb.NewMemoryStore()
	rec := record("motor/1", "slow", 1)
	require.NoError(t, store.Save(ctx, rec))

	require.NoError(t, rec.Config.Set("speed", 100.0))

	got, err := store.Get(ctx, "motor/1", "slow")
	require.NoError(t, err)
	speed, err := got.Config.GetDouble("speed")
	require.NoError(t, err)
	assert.Equal(t, 1.0, speed)
}

func TestMemoryStoreOverwriteAndDelete(t *testing.T) {
	ctx := context.Background()
	store := configdb.NewMemoryStore()
	require.NoError(t, store.Save(ctx, record("motor/1", "slow", 1)))
	require.NoError(t, store.Save(ctx, record("motor/1", "slow", 2)))

	got, err := store.Get(ctx, "motor/1", "slow")
	require.NoError(t, err)
	speed, err := got.Config.GetDouble("speed")
	require.NoError(t, err)
	assert.Equal(t, 2.0, speed)

	require.NoError(t, store.Delete(ctx, "motor/1", "slow"))
	_, err = store.Get(ctx, "motor/1", "slow")
	assert.ErrorIs(t, err, configdb.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "motor/1", "slow"), configdb.ErrNotFound)
}

func TestRecordValidation(t *testing.T) {
	store := configdb.NewMemoryStore()
	for name, rec := range map[string]*configdb.Record{
		"nil":       nil,
		"no device": {Name: "a", Config: hash.New()},
		"no name":   {DeviceID: "a", Config: hash.New()},
		"no config": {DeviceID: "a", Name: "b"},
	} {
		t.Run(name, func(t *testing.T) {
			err := store.Save(context.Background(), rec)

			var dbErr *configdb.Error
			require.True(t, errors.As(err, &dbErr))
			assert.True(t, dbErr.IsDataError())
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := configdb.NewNotFoundError("motor/1", "slow")

	assert.ErrorIs(t, err, configdb.ErrNotFound)
	assert.Equal(t, "no such configuration: motor/1/slow", err.Error())
	assert.False(t, errors.Is(configdb.NewDatabaseError(errors.New("down")), configdb.ErrNotFound))
}
