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

// Package configdb stores named device configurations.
package configdb

import (
	"context"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/bincodec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/timestamp"
)

// Record is one named configuration of a device.
type Record struct {
	DeviceID    string
	Name        string
	Description string
	Saved       timestamp.Timestamp
	Config      *hash.Hash
}

// Info describes a Record without its configuration.
type Info struct {
	DeviceID    string
	Name        string
	Description string
	Saved       timestamp.Timestamp
}

func (r *Record) Info() Info {
	return Info{
		DeviceID:    r.DeviceID,
		Name:        r.Name,
		Description: r.Description,
		Saved:       r.Saved,
	}
}

// Store persists Records keyed by device and name. Saving an existing key
// replaces it. List orders by name.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, deviceID, name string) (*Record, error)
	List(ctx context.Context, deviceID string) ([]Info, error)
	Delete(ctx context.Context, deviceID, name string) error
	Close(ctx context.Context) error
}

// Validate checks the key of rec.
func Validate(rec *Record) error {
	switch {
	case rec == nil:
		return NewDataError("nil record")
	case strings.TrimSpace(rec.DeviceID) == "":
		return NewDataError("device id must not be empty")
	case strings.TrimSpace(rec.Name) == "":
		return NewDataError("configuration name must not be empty")
	case rec.Config == nil:
		return NewDataError("configuration must not be nil")
	}
	return nil
}

// Encode serializes a configuration the way stores keep it.
func Encode(config *hash.Hash) ([]byte, error) {
	data, err := bincodec.Marshal(config)
	if err != nil {
		return nil, NewDataError("unencodable configuration", err)
	}
	return data, nil
}

func Decode(data []byte) (*hash.Hash, error) {
	h, err := bincodec.Unmarshal(data)
	if err != nil {
		return nil, NewDataError("corrupt configuration", err)
	}
	return h, nil
}
