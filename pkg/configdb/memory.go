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

package configdb

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	sync.RWMutex
	records map[string]map[string]stored
}

type stored struct {
	info Info
	data []byte
}

// NewMemoryStore returns a Store kept in process memory.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]map[string]stored)}
}

func (m *memoryStore) Save(_ context.Context, rec *Record) error {
	if err := Validate(rec); err != nil {
		return err
	}
	data, err := Encode(rec.Config)
	if err != nil {
		return err
	}
	m.Lock()
	defer m.Unlock()
	device, ok := m.records[rec.DeviceID]
	if !ok {
		device = make(map[string]stored)
		m.records[rec.DeviceID] = device
	}
	device[rec.Name] = stored{info: rec.Info(), data: data}
	return nil
}

func (m *memoryStore) Get(_ context.Context, deviceID, name string) (*Record, error) {
	m.RLock()
	s, ok := m.records[deviceID][name]
	m.RUnlock()
	if !ok {
		return nil, NewNotFoundError(deviceID, name)
	}
	config, err := Decode(s.data)
	if err != nil {
		return nil, err
	}
	return &Record{
		DeviceID:    s.info.DeviceID,
		Name:        s.info.Name,
		Description: s.info.Description,
		Saved:       s.info.Saved,
		Config:      config,
	}, nil
}

func (m *memoryStore) List(_ context.Context, deviceID string) ([]Info, error) {
	m.RLock()
	defer m.RUnlock()
	out := make([]Info, 0, len(m.records[deviceID]))
	for _, s := range m.records[deviceID] {
		out = append(out, s.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, deviceID, name string) error {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.records[deviceID][name]; !ok {
		return NewNotFoundError(deviceID, name)
	}
	delete(m.records[deviceID], name)
	if len(m.records[deviceID]) == 0 {
		delete(m.records, deviceID)
	}
	return nil
}

func (m *memoryStore) Close(context.Context) error {
	return nil
}
