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

// Package message implements the broker message envelope: a header Hash that
// routes the message and a body Hash holding the slot arguments a1..aN. Both
// are serialized independently; the header is always binary and its
// __format entry names the codec of the body.
package message

import (
	"os"
	"strconv"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/google/uuid"
)

const (
	SignalFunctionKey   = "signalFunction"
	SignalInstanceIDKey = "signalInstanceId"
	SlotInstanceIDsKey  = "slotInstanceIds"
	SlotFunctionsKey    = "slotFunctions"
	ReplyToKey          = "replyTo"
	ReplyFromKey        = "replyFrom"
	FormatKey           = "__format"
	HostnameKey         = "hostname"
	ClassIDKey          = "classId"
	ErrorKey            = "error"
)

const (
	CallFunction        = "call"
	ReplyFunction       = "__reply__"
	ReplyNoWaitFunction = "__replyNoWait__"
	NoInstances         = "__none__"
)

type Message struct {
	Header *hash.Hash
	Body   *hash.Hash
}

// New wraps header and body; nil parts become empty Hashes.
func New(header, body *hash.Hash) *Message {
	if header == nil {
		header = hash.New()
	}
	if body == nil {
		body = hash.New()
	}
	return &Message{Header: header, Body: body}
}

// Call addresses slot of target on behalf of sender and asks for a reply.
func Call(sender, target, slot string, args ...any) (*Message, error) {
	m := New(nil, nil)
	m.setHeader(SignalFunctionKey, CallFunction)
	m.setHeader(SignalInstanceIDKey, sender)
	m.setHeader(SlotInstanceIDsKey, joinIDs([]string{target}))
	m.setHeader(SlotFunctionsKey, joinSlots([]Target{{ID: target, Functions: []string{slot}}}))
	m.setHeader(ReplyToKey, uuid.NewString())
	m.stamp()
	if err := m.SetArgs(args...); err != nil {
		return nil, err
	}
	return m, nil
}

// Signal emits signal from sender to the given targets. Without targets the
// signal is a broadcast with slotInstanceIds set to __none__.
func Signal(sender, signal string, targets []Target, args ...any) (*Message, error) {
	m := New(nil, nil)
	m.setHeader(SignalFunctionKey, signal)
	m.setHeader(SignalInstanceIDKey, sender)
	if len(targets) == 0 {
		m.setHeader(SlotInstanceIDsKey, NoInstances)
		m.setHeader(SlotFunctionsKey, NoInstances)
	} else {
		ids := make([]string, len(targets))
		for i, t := range targets {
			ids[i] = t.ID
		}
		m.setHeader(SlotInstanceIDsKey, joinIDs(ids))
		m.setHeader(SlotFunctionsKey, joinSlots(targets))
	}
	m.stamp()
	if err := m.SetArgs(args...); err != nil {
		return nil, err
	}
	return m, nil
}

// Reply answers m on behalf of sender.
func (m *Message) Reply(sender string, args ...any) (*Message, error) {
	r := m.replyEnvelope(sender)
	if err := r.SetArgs(args...); err != nil {
		return nil, err
	}
	return r, nil
}

// ReplyError answers m with a failure. The body carries the error text as a1.
func (m *Message) ReplyError(sender string, err error) *Message {
	r := m.replyEnvelope(sender)
	r.setHeader(ErrorKey, true)
	r.setBody("a1", err.Error())
	return r
}

func (m *Message) replyEnvelope(sender string) *Message {
	r := New(nil, nil)
	fn := ReplyFunction
	if m.SignalFunction() != CallFunction {
		fn = ReplyNoWaitFunction
	}
	r.setHeader(SignalFunctionKey, fn)
	r.setHeader(SignalInstanceIDKey, sender)
	r.setHeader(SlotInstanceIDsKey, joinIDs([]string{m.Sender()}))
	r.setHeader(ReplyFromKey, m.ReplyTo())
	r.setHeader(FormatKey, string(m.Format()))
	r.stamp()
	return r
}

func (m *Message) stamp() {
	if !m.Header.Has(FormatKey) {
		m.setHeader(FormatKey, string(codec.Bin))
	}
	if host, err := os.Hostname(); err == nil {
		m.setHeader(HostnameKey, host)
	}
}

// setHeader only sees well formed values.
func (m *Message) setHeader(key string, v any) {
	if err := m.Header.Set(key, v); err != nil {
		panic(err)
	}
}

func (m *Message) setBody(key string, v any) {
	if err := m.Body.Set(key, v); err != nil {
		panic(err)
	}
}

func (m *Message) headerString(key string) string {
	s, err := m.Header.GetString(key)
	if err != nil {
		return ""
	}
	return s
}

func (m *Message) SignalFunction() string {
	return m.headerString(SignalFunctionKey)
}

// Sender is the instance id of the emitting device.
func (m *Message) Sender() string {
	return m.headerString(SignalInstanceIDKey)
}

func (m *Message) ReplyTo() string {
	return m.headerString(ReplyToKey)
}

func (m *Message) ReplyFrom() string {
	return m.headerString(ReplyFromKey)
}

func (m *Message) ClassID() string {
	return m.headerString(ClassIDKey)
}

func (m *Message) SetClassID(classID string) {
	m.setHeader(ClassIDKey, classID)
}

// Format is the body codec; it defaults to Bin.
func (m *Message) Format() codec.Format {
	f, err := codec.ParseFormat(m.headerString(FormatKey))
	if err != nil {
		return codec.Bin
	}
	return f
}

func (m *Message) SetFormat(f codec.Format) {
	m.setHeader(FormatKey, string(f))
}

func (m *Message) IsReply() bool {
	fn := m.SignalFunction()
	return fn == ReplyFunction || fn == ReplyNoWaitFunction
}

// IsError reports a reply built by ReplyError.
func (m *Message) IsError() bool {
	v, err := m.Header.GetAs(ErrorKey, types.Bool)
	return err == nil && v.(bool)
}

// Error returns the failure text of an error reply.
func (m *Message) Error() string {
	if !m.IsError() {
		return ""
	}
	s, _ := m.Body.GetString("a1")
	return s
}

// SlotInstanceIDs lists the addressed instances; a broadcast yields nil.
func (m *Message) SlotInstanceIDs() []string {
	return splitIDs(m.headerString(SlotInstanceIDsKey))
}

// Target is one addressed instance and the slots called on it.
type Target struct {
	ID        string
	Functions []string
}

func (m *Message) SlotFunctions() ([]Target, error) {
	return splitSlots(m.headerString(SlotFunctionsKey))
}

// argKey names positional argument i, counting from zero.
func argKey(i int) string {
	return "a" + strconv.Itoa(i+1)
}

// SetArgs replaces the body by the positional arguments a1..aN.
func (m *Message) SetArgs(args ...any) error {
	body := hash.New()
	for i, a := range args {
		if err := body.Set(argKey(i), a); err != nil {
			return types.Wrap(err, "argument %d", i+1)
		}
	}
	m.Body = body
	return nil
}

// Args returns a1, a2, ... up to the first missing one.
func (m *Message) Args() []types.Value {
	var out []types.Value
	for i := 0; ; i++ {
		v, err := m.Body.GetValue(argKey(i))
		if err != nil {
			return out
		}
		out = append(out, v)
	}
}

// Arg returns argument i, counting from zero.
func (m *Message) Arg(i int) (types.Value, error) {
	return m.Body.GetValue(argKey(i))
}

func joinIDs(ids []string) string {
	var sb strings.Builder
	for _, id := range ids {
		sb.WriteString("|" + id + "|")
	}
	return sb.String()
}

func splitIDs(s string) []string {
	if s == NoInstances {
		return nil
	}
	var out []string
	for _, id := range strings.Split(s, "|") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func joinSlots(targets []Target) string {
	var sb strings.Builder
	for _, t := range targets {
		sb.WriteString("|" + t.ID + ":" + strings.Join(t.Functions, ",") + "|")
	}
	return sb.String()
}

func splitSlots(s string) ([]Target, error) {
	var out []Target
	for _, item := range splitIDs(s) {
		id, fns, ok := strings.Cut(item, ":")
		if !ok || id == "" {
			return nil, types.NewParseError(-1, types.String, "slot function entry "+strconv.Quote(item)+" lacks an instance id")
		}
		t := Target{ID: id}
		for _, fn := range strings.Split(fns, ",") {
			if fn = strings.TrimSpace(fn); fn != "" {
				t.Functions = append(t.Functions, fn)
			}
		}
		out = append(out, t)
	}
	return out, nil
}
