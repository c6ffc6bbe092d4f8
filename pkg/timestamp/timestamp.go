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

// Package timestamp reads and writes the epoch, attosecond and train id
// attributes that date a Hash entry.
package timestamp

import (
	"fmt"
	"time"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	SecAttr  = "sec"
	FracAttr = "frac"
	TidAttr  = "tid"
)

const (
	attoPerNano   = 1_000_000_000
	attoPerSecond = 1_000_000_000_000_000_000
)

// Timestamp is a point in time with attosecond resolution plus the train id
// it was taken in. Tid is zero outside of a train.
type Timestamp struct {
	Sec  uint64
	Frac uint64
	Tid  uint64
}

// Clock supplies timestamps, e.g. to a validator injecting them.
type Clock func() Timestamp

// Now reads the system clock with no train id.
func Now() Timestamp {
	return FromTime(time.Now(), 0)
}

// FromTime converts t; instants before the epoch clamp to zero.
func FromTime(t time.Time, tid uint64) Timestamp {
	if t.Unix() < 0 {
		return Timestamp{Tid: tid}
	}
	return Timestamp{Sec: uint64(t.Unix()), Frac: uint64(t.Nanosecond()) * attoPerNano, Tid: tid}
}

// Time truncates the fraction to nanoseconds.
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t.Sec), int64(t.Frac/attoPerNano)).UTC()
}

func FromProto(p *timestamppb.Timestamp, tid uint64) Timestamp {
	if p == nil {
		return Timestamp{Tid: tid}
	}
	return FromTime(p.AsTime(), tid)
}

func (t Timestamp) ToProto() *timestamppb.Timestamp {
	return timestamppb.New(t.Time())
}

// Compare orders by time; the train id is not considered.
func (t Timestamp) Compare(o Timestamp) int {
	switch {
	case t.Sec < o.Sec:
		return -1
	case t.Sec > o.Sec:
		return 1
	case t.Frac < o.Frac:
		return -1
	case t.Frac > o.Frac:
		return 1
	}
	return 0
}

func (t Timestamp) Before(o Timestamp) bool {
	return t.Compare(o) < 0
}

// Add moves the time by d, which may be negative. The result saturates at
// the epoch.
func (t Timestamp) Add(d time.Duration) Timestamp {
	atto := int64(d%time.Second) * attoPerNano
	sec := int64(t.Sec) + int64(d/time.Second)
	frac := int64(t.Frac) + atto
	if frac < 0 {
		frac += attoPerSecond
		sec--
	} else if frac >= attoPerSecond {
		frac -= attoPerSecond
		sec++
	}
	if sec < 0 {
		return Timestamp{Tid: t.Tid}
	}
	return Timestamp{Sec: uint64(sec), Frac: uint64(frac), Tid: t.Tid}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%s.%018d (tid %d)", t.Time().Format("2006-01-02T15:04:05"), t.Frac, t.Tid)
}

// Attributes renders t as UINT64 attributes.
func (t Timestamp) Attributes() *hash.Attributes {
	attrs := hash.NewAttributes()
	t.apply(attrs)
	return attrs
}

func (t Timestamp) apply(attrs *hash.Attributes) {
	attrs.SetValue(SecAttr, types.MustValue(types.Uint64, t.Sec))
	attrs.SetValue(FracAttr, types.MustValue(types.Uint64, t.Frac))
	attrs.SetValue(TidAttr, types.MustValue(types.Uint64, t.Tid))
}

// Set stamps the entry at path, keeping its other attributes.
func Set(h *hash.Hash, path string, t Timestamp) error {
	n, err := h.Find(path)
	if err != nil {
		return err
	}
	t.apply(n.Attributes())
	return nil
}

// SetLeaves stamps every leaf below h. Empty Hashes count as leaves.
func SetLeaves(h *hash.Hash, t Timestamp) error {
	return h.FlatEach(true, func(_ string, _ types.Value, attrs *hash.Attributes) error {
		t.apply(attrs)
		return nil
	})
}

// FromAttributes reads a timestamp from attrs. ok is false unless sec and
// frac are present; tid defaults to zero.
func FromAttributes(attrs *hash.Attributes) (ts Timestamp, ok bool, err error) {
	if !attrs.Has(SecAttr) || !attrs.Has(FracAttr) {
		return Timestamp{}, false, nil
	}
	fields := []struct {
		name string
		dst  *uint64
	}{{SecAttr, &ts.Sec}, {FracAttr, &ts.Frac}, {TidAttr, &ts.Tid}}
	for _, f := range fields {
		if !attrs.Has(f.name) {
			continue
		}
		v, err := attrs.GetAs(f.name, types.Uint64)
		if err != nil {
			return Timestamp{}, false, types.Wrap(err, "timestamp attribute %q", f.name)
		}
		*f.dst = v.(uint64)
	}
	if ts.Frac >= attoPerSecond {
		return Timestamp{}, false, types.NewRangeError("timestamp fraction %d is not below one second", ts.Frac)
	}
	return ts, true, nil
}

// Get reads the timestamp of the entry at path.
func Get(h *hash.Hash, path string) (Timestamp, bool, error) {
	attrs, err := h.Attributes(path)
	if err != nil {
		return Timestamp{}, false, err
	}
	return FromAttributes(attrs)
}
