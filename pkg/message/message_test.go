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

package message_test

import (
	"errors"
	"testing"

	"github.com/European-XFEL/Karabo-sub014/pkg/codec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/message"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall(t *testing.T) {

	// When
	m, err := message.Call("gui/1", "motor/1", "move", 2.5, "fast")
	require.NoError(t, err)

	// Then
	assert.Equal(t, message.CallFunction, m.SignalFunction())
	assert.Equal(t, "gui/1", m.Sender())
	assert.Equal(t, []string{"motor/1"}, m.SlotInstanceIDs())
	slots, err := m.SlotFunctions()
	require.NoError(t, err)
	assert.Equal(t, []message.Target{{ID: "motor/1", Functions: []string{"move"}}}, slots)
	_, err = uuid.Parse(m.ReplyTo())
	assert.NoError(t, err)
	assert.Equal(t, codec.Bin, m.Format())
	assert.Equal(t, []string{"a1", "a2"}, m.Body.Keys())
	args := m.Args()
	require.Len(t, args, 2)
	assert.Equal(t, types.Double, args[0].Kind())
	assert.Equal(t, "fast", args[1].Data())
}

func TestReply(t *testing.T) {
	call, err := message.Call("gui/1", "motor/1", "position")
	require.NoError(t, err)

	reply, err := call.Reply("motor/1", 12.5)
	require.NoError(t, err)

	assert.True(t, reply.IsReply())
	assert.False(t, reply.IsError())
	assert.Equal(t, message.ReplyFunction, reply.SignalFunction())
	assert.Equal(t, call.ReplyTo(), reply.ReplyFrom())
	assert.Equal(t, []string{"gui/1"}, reply.SlotInstanceIDs())
	v, err := reply.Arg(0)
	require.NoError(t, err)
	assert.Equal(t, 12.5, v.Data())

	failed := call.ReplyError("motor/1", errors.New("motor is locked"))
	assert.True(t, failed.IsError())
	assert.Equal(t, "motor is locked", failed.Error())
}

func TestSignal(t *testing.T) {
	broadcast, err := message.Signal("motor/1", "signalChanged", nil, hash.MustBuild("position", 1.0))
	require.NoError(t, err)
	assert.Nil(t, broadcast.SlotInstanceIDs())
	slots, err := broadcast.SlotFunctions()
	require.NoError(t, err)
	assert.Empty(t, slots)

	targets := []message.Target{
		{ID: "logger/1", Functions: []string{"log", "store"}},
		{ID: "gui/1", Functions: []string{"update"}},
	}
	m, err := message.Signal("motor/1", "signalChanged", targets)
	require.NoError(t, err)
	assert.Equal(t, "|logger/1||gui/1|", must(m.Header.GetString(message.SlotInstanceIDsKey)))
	assert.Equal(t, "|logger/1:log,store||gui/1:update|", must(m.Header.GetString(message.SlotFunctionsKey)))
	got, err := m.SlotFunctions()
	require.NoError(t, err)
	assert.Equal(t, targets, got)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, f := range []codec.Format{codec.Bin, codec.Xml} {
		t.Run(string(f), func(t *testing.T) {

			// Given
			m, err := message.Call("gui/1", "motor/1", "configure", hash.MustBuild("speed", 3), []string{"x", "y"})
			require.NoError(t, err)
			m.SetFormat(f)
			m.SetClassID("Gui")

			// When
			header, body, err := message.Marshal(m)
			require.NoError(t, err)
			back, err := message.Unmarshal(header, body)
			require.NoError(t, err)

			// Then
			assert.True(t, m.Header.Equal(back.Header))
			assert.True(t, m.Body.Equal(back.Body))
			assert.Equal(t, "Gui", back.ClassID())
			if f == codec.Xml {
				assert.Contains(t, string(body), "KRB_Artificial")
			}
		})
	}
}

func TestFrame(t *testing.T) {
	m, err := message.Call("a", "b", "c", int32(7))
	require.NoError(t, err)

	data, err := message.EncodeFrame(m)
	require.NoError(t, err)
	back, err := message.DecodeFrame(data)
	require.NoError(t, err)

	assert.True(t, m.Header.Equal(back.Header))
	assert.True(t, m.Body.Equal(back.Body))

	_, err = message.DecodeFrame(data[:10])
	assert.Error(t, err)
}

func TestUnknownBodyFormat(t *testing.T) {
	m := message.New(hash.MustBuild(message.FormatKey, "Json"), nil)

	_, _, err := message.Marshal(m)

	assert.ErrorIs(t, err, types.ErrKey)
}

func TestMalformedSlotFunctions(t *testing.T) {
	m := message.New(hash.MustBuild(message.SlotFunctionsKey, "|:fn|"), nil)

	_, err := m.SlotFunctions()

	assert.ErrorIs(t, err, types.ErrParse)
}

func must(s string, err error) string {
	if err != nil {
		panic(err)
	}
	return s
}
