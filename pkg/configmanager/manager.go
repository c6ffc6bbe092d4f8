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

// Package configmanager serves named device configurations as slots.
package configmanager

import (
	"context"
	"sync"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/configdb"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/server"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/European-XFEL/Karabo-sub014/pkg/validator"
	"go.uber.org/zap"
)

const (
	SaveSlot   = "saveConfiguration"
	GetSlot    = "getConfiguration"
	ListSlot   = "listConfigurations"
	DeleteSlot = "deleteConfiguration"
)

// Keys of the item hashes returned by getConfiguration and listConfigurations.
const (
	NameKey        = "name"
	DeviceIDKey    = "deviceId"
	DescriptionKey = "description"
	TimepointKey   = "timepoint"
	ConfigKey      = "config"
)

type Option func(*Manager)

// WithSchema validates configurations of deviceID against s before saving.
func WithSchema(deviceID string, s *schema.Schema) Option {
	return func(m *Manager) {
		m.SetSchema(deviceID, s)
	}
}

func WithClock(c timestamp.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithValidator(v *validator.Validator) Option {
	return func(m *Manager) {
		if v != nil {
			m.validator = v
		}
	}
}

type Manager struct {
	store     configdb.Store
	clock     timestamp.Clock
	validator *validator.Validator

	sync.RWMutex
	schemas map[string]*schema.Schema
}

func New(store configdb.Store, opts ...Option) *Manager {
	if store == nil {
		panic("store must not be nil")
	}
	m := &Manager{
		store:   store,
		clock:   timestamp.Now,
		schemas: make(map[string]*schema.Schema),
		validator: validator.New(validator.Rules{
			AllowUnrootedConfiguration: true,
			AllowMissingKeys:           true,
		}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) SetSchema(deviceID string, s *schema.Schema) {
	m.Lock()
	defer m.Unlock()
	if s == nil {
		delete(m.schemas, deviceID)
	} else {
		m.schemas[deviceID] = s
	}
}

func (m *Manager) schema(deviceID string) (*schema.Schema, bool) {
	m.RLock()
	defer m.RUnlock()
	s, ok := m.schemas[deviceID]
	return s, ok
}

// Slots maps slot names to their handlers.
func (m *Manager) Slots() map[string]server.Slot {
	return map[string]server.Slot{
		SaveSlot:   m.save,
		GetSlot:    m.get,
		ListSlot:   m.list,
		DeleteSlot: m.delete,
	}
}

// Resolver serves the manager slots and defers everything else to next,
// which may be nil.
func (m *Manager) Resolver(next server.SlotResolver) server.SlotResolver {
	slots := m.Slots()
	return func(name string) (server.Slot, bool) {
		if s, ok := slots[name]; ok {
			return s, true
		}
		if next != nil {
			return next(name)
		}
		return nil, false
	}
}

// Register adds the manager slots to the server's slot registry. It reports
// whether every slot was free.
func (m *Manager) Register() bool {
	ok := true
	for name, slot := range m.Slots() {
		ok = server.RegisterSlot(name, slot) && ok
	}
	return ok
}

func (m *Manager) Deregister() {
	for name := range m.Slots() {
		server.DeregisterSlot(name)
	}
}

// save handles saveConfiguration(name, deviceId, config[, description]).
func (m *Manager) save(ctx context.Context, call *message.Message) ([]any, error) {
	name, err := stringArg(call, 0, NameKey)
	if err != nil {
		return nil, err
	}
	deviceID, err := stringArg(call, 1, DeviceIDKey)
	if err != nil {
		return nil, err
	}
	config, err := hashArg(call, 2, ConfigKey)
	if err != nil {
		return nil, err
	}
	var description string
	if _, e := call.Arg(3); e == nil {
		if description, err = stringArg(call, 3, DescriptionKey); err != nil {
			return nil, err
		}
	}
	logger := log.FromContext(ctx).With(zap.String("deviceId", deviceID), zap.String("name", name))

	if s, ok := m.schema(deviceID); ok {
		if config, err = m.validator.Validate(s, config); err != nil {
			logger.Info("configuration rejected", zap.Error(err))
			return nil, err
		}
	}

	rec := &configdb.Record{
		DeviceID:    deviceID,
		Name:        name,
		Description: description,
		Saved:       m.clock(),
		Config:      config,
	}
	if err = m.store.Save(ctx, rec); err != nil {
		logger.Error("error saving configuration", zap.Error(err))
		return nil, err
	}
	logger.Info("configuration saved")
	return []any{item(rec.Info())}, nil
}

// get handles getConfiguration(name, deviceId).
func (m *Manager) get(ctx context.Context, call *message.Message) ([]any, error) {
	name, err := stringArg(call, 0, NameKey)
	if err != nil {
		return nil, err
	}
	deviceID, err := stringArg(call, 1, DeviceIDKey)
	if err != nil {
		return nil, err
	}
	rec, err := m.store.Get(ctx, deviceID, name)
	if err != nil {
		return nil, err
	}
	out := item(rec.Info())
	if err = out.Set(ConfigKey, rec.Config); err != nil {
		return nil, err
	}
	if err = timestamp.Set(out, ConfigKey, rec.Saved); err != nil {
		return nil, err
	}
	log.FromContext(ctx).Debug("configuration loaded", zap.String("deviceId", deviceID), zap.String("name", name))
	return []any{out}, nil
}

// list handles listConfigurations(deviceId).
func (m *Manager) list(ctx context.Context, call *message.Message) ([]any, error) {
	deviceID, err := stringArg(call, 0, DeviceIDKey)
	if err != nil {
		return nil, err
	}
	infos, err := m.store.List(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	items := make([]*hash.Hash, len(infos))
	for i, info := range infos {
		items[i] = item(info)
	}
	return []any{items}, nil
}

// delete handles deleteConfiguration(name, deviceId).
func (m *Manager) delete(ctx context.Context, call *message.Message) ([]any, error) {
	name, err := stringArg(call, 0, NameKey)
	if err != nil {
		return nil, err
	}
	deviceID, err := stringArg(call, 1, DeviceIDKey)
	if err != nil {
		return nil, err
	}
	if err = m.store.Delete(ctx, deviceID, name); err != nil {
		return nil, err
	}
	log.FromContext(ctx).Info("configuration deleted", zap.String("deviceId", deviceID), zap.String("name", name))
	return nil, nil
}

func item(info configdb.Info) *hash.Hash {
	return hash.MustBuild(
		NameKey, info.Name,
		DeviceIDKey, info.DeviceID,
		DescriptionKey, info.Description,
		TimepointKey, info.Saved.String(),
	)
}

func stringArg(call *message.Message, i int, what string) (string, error) {
	v, err := call.Arg(i)
	if err != nil {
		return "", types.Wrap(err, "missing %s", what)
	}
	s, err := types.Convert(v, types.String)
	if err != nil {
		return "", types.Wrap(err, "%s", what)
	}
	return s.Data().(string), nil
}

func hashArg(call *message.Message, i int, what string) (*hash.Hash, error) {
	v, err := call.Arg(i)
	if err != nil {
		return nil, types.Wrap(err, "missing %s", what)
	}
	h, ok := v.Data().(*hash.Hash)
	if !ok {
		return nil, types.NewTypeError("%s must be a HASH, got %s", what, v.Kind())
	}
	return h, nil
}
