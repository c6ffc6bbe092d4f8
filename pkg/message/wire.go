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

package message

import (
	"github.com/European-XFEL/Karabo-sub014/pkg/bincodec"
	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// Frame keys of the transport envelope holding both serialized parts.
const (
	FrameHeaderKey = "header"
	FrameBodyKey   = "body"
)

// Marshal serializes header and body separately.
func Marshal(m *Message, opts ...codec.Option) (header, body []byte, err error) {
	hc, err := codec.New(codec.Bin, opts...)
	if err != nil {
		return nil, nil, err
	}
	if header, err = hc.Marshal(m.Header); err != nil {
		return nil, nil, types.Wrap(err, "message header")
	}
	f := codec.Bin
	if m.Header.Has(FormatKey) {
		if f, err = codec.ParseFormat(m.headerString(FormatKey)); err != nil {
			return nil, nil, err
		}
	}
	bc, err := codec.New(f, opts...)
	if err != nil {
		return nil, nil, err
	}
	if body, err = bc.Marshal(m.Body); err != nil {
		return nil, nil, types.Wrap(err, "message body")
	}
	return header, body, nil
}

// Unmarshal reverses Marshal. A header without __format means a binary body.
func Unmarshal(header, body []byte, opts ...codec.Option) (*Message, error) {
	hc, err := codec.New(codec.Bin, opts...)
	if err != nil {
		return nil, err
	}
	h, err := hc.Unmarshal(header)
	if err != nil {
		return nil, types.Wrap(err, "message header")
	}
	f := codec.Bin
	if h.Has(FormatKey) {
		s, err := h.GetString(FormatKey)
		if err != nil {
			return nil, types.Wrap(err, "message header")
		}
		if f, err = codec.ParseFormat(s); err != nil {
			return nil, err
		}
	}
	bc, err := codec.New(f, opts...)
	if err != nil {
		return nil, err
	}
	b, err := bc.Unmarshal(body)
	if err != nil {
		return nil, types.Wrap(err, "message body")
	}
	return New(h, b), nil
}

// EncodeFrame packs both serialized parts into one binary Hash
// {header: VECTOR_CHAR, body: VECTOR_CHAR}.
func EncodeFrame(m *Message, opts ...codec.Option) ([]byte, error) {
	header, body, err := Marshal(m, opts...)
	if err != nil {
		return nil, err
	}
	frame := hash.New()
	if err = frame.SetValue(FrameHeaderKey, types.MustValue(types.VectorChar, header)); err != nil {
		return nil, err
	}
	if err = frame.SetValue(FrameBodyKey, types.MustValue(types.VectorChar, body)); err != nil {
		return nil, err
	}
	return bincodec.Marshal(frame)
}

func DecodeFrame(data []byte, opts ...codec.Option) (*Message, error) {
	frame, err := bincodec.Unmarshal(data)
	if err != nil {
		return nil, types.Wrap(err, "message frame")
	}
	header, err := frame.GetAs(FrameHeaderKey, types.VectorChar)
	if err != nil {
		return nil, types.Wrap(err, "message frame")
	}
	body, err := frame.GetAs(FrameBodyKey, types.VectorChar)
	if err != nil {
		return nil, types.Wrap(err, "message frame")
	}
	return Unmarshal(header.([]byte), body.([]byte), opts...)
}
