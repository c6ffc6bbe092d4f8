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

package api

import (
	"github.com/European-XFEL/Karabo-sub014/pkg/bincodec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

const (
	APIVersion uint32 = 1

	apiVersionKey = "apiVersion"
	instanceIDKey = "instanceId"
)

// Info is the handshake payload exchanged by Check.
type Info struct {
	APIVersion uint32
	InstanceID string
}

func CheckInfo(instanceID string) *Info {
	return &Info{APIVersion: APIVersion, InstanceID: instanceID}
}

func (i *Info) Frame() (*Frame, error) {
	h := hash.New()
	if err := h.SetAs(apiVersionKey, i.APIVersion, types.Uint32); err != nil {
		return nil, err
	}
	if err := h.Set(instanceIDKey, i.InstanceID); err != nil {
		return nil, err
	}
	data, err := bincodec.Marshal(h)
	if err != nil {
		return nil, err
	}
	return NewFrame(data), nil
}

func ParseInfo(f *Frame) (*Info, error) {
	h, err := bincodec.Unmarshal(f.Data)
	if err != nil {
		return nil, types.Wrap(err, "check info")
	}
	info := new(Info)
	if info.APIVersion, err = h.GetUint32(apiVersionKey); err != nil {
		return nil, types.Wrap(err, "check info")
	}
	if h.Has(instanceIDKey) {
		if info.InstanceID, err = h.GetString(instanceIDKey); err != nil {
			return nil, types.Wrap(err, "check info")
		}
	}
	return info, nil
}

const receivedKey = "received"

// PublishAck closes a Publish stream with the number of signals received.
func PublishAck(received uint32) (*Frame, error) {
	h := hash.New()
	if err := h.SetAs(receivedKey, received, types.Uint32); err != nil {
		return nil, err
	}
	data, err := bincodec.Marshal(h)
	if err != nil {
		return nil, err
	}
	return NewFrame(data), nil
}

func ParsePublishAck(f *Frame) (uint32, error) {
	h, err := bincodec.Unmarshal(f.Data)
	if err != nil {
		return 0, types.Wrap(err, "publish acknowledgement")
	}
	n, err := h.GetUint32(receivedKey)
	if err != nil {
		return 0, types.Wrap(err, "publish acknowledgement")
	}
	return n, nil
}
