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

// Package codec selects between the binary and XML Hash serializations by
// name or by file extension.
package codec

import (
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/bincodec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/metrics"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/European-XFEL/Karabo-sub014/pkg/xmlcodec"
)

// Format names a serialization as it appears in the __format message header.
type Format string

const (
	Bin Format = "Bin"
	Xml Format = "Xml"
)

// ParseFormat accepts a format name in any letter case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bin":
		return Bin, nil
	case "xml":
		return Xml, nil
	}
	return "", types.NewKeyError("unknown serialization format %q", s)
}

type Codec interface {
	Format() Format
	Marshal(h *hash.Hash) ([]byte, error)
	Unmarshal(data []byte) (*hash.Hash, error)
}

type Option func(*codec)

// WithMetrics counts documents and sizes on col.
func WithMetrics(col metrics.CodecCollector) Option {
	return func(c *codec) {
		if col != nil {
			c.metrics = col
		}
	}
}

// WithIndent makes the XML codec indent nested elements. It has no effect
// on the binary codec.
func WithIndent(indent string) Option {
	return func(c *codec) {
		c.indent = indent
	}
}

type codec struct {
	format  Format
	indent  string
	metrics metrics.CodecCollector
}

func New(f Format, opts ...Option) (Codec, error) {
	if f != Bin && f != Xml {
		return nil, types.NewKeyError("unknown serialization format %q", string(f))
	}
	c := &codec{format: f, metrics: metrics.ForCodecs(nil)}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustNew is New for the two known formats.
func MustNew(f Format, opts ...Option) Codec {
	c, err := New(f, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *codec) Format() Format {
	return c.format
}

func (c *codec) Marshal(h *hash.Hash) (data []byte, err error) {
	if c.format == Xml {
		data, err = xmlcodec.MarshalIndent(h, "", c.indent)
	} else {
		data, err = bincodec.Marshal(h)
	}
	if err != nil {
		c.metrics.Failed(string(c.format), "encode")
		return nil, err
	}
	c.metrics.Encoded(string(c.format), len(data))
	return data, nil
}

func (c *codec) Unmarshal(data []byte) (h *hash.Hash, err error) {
	if c.format == Xml {
		h, err = xmlcodec.Unmarshal(data)
	} else {
		h, err = bincodec.Unmarshal(data)
	}
	if err != nil {
		c.metrics.Failed(string(c.format), "decode")
		return nil, err
	}
	c.metrics.Decoded(string(c.format), len(data))
	return h, nil
}
