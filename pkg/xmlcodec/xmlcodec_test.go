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

package xmlcodec_test

import (
	"math"
	"strings"
	"testing"

	"github.com/European-XFEL/Karabo-sub014/pkg/bincodec"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/European-XFEL/Karabo-sub014/pkg/xmlcodec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedAttribute(t *testing.T) {

	// Given
	h := hash.New()
	require.NoError(t, h.Set("temperature", 295.15))
	require.NoError(t, h.SetAttribute("temperature", "unitSymbol", "K"))
	require.NoError(t, h.SetAttribute("temperature", "absoluteError", 0.05))

	// When
	data, err := xmlcodec.Marshal(h)
	require.NoError(t, err)

	// Then
	assert.Contains(t, string(data), `<temperature KRB_Type="DOUBLE" unitSymbol="K" absoluteError="KRB_DOUBLE:0.05">295.15</temperature>`)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, h.Equal(back), "decoded:\n%s", back)
	k, err := back.GetAttributeKind("temperature", "absoluteError")
	require.NoError(t, err)
	assert.Equal(t, types.Double, k)
}

func TestArtificialRoot(t *testing.T) {
	h := hash.MustBuild("a", int32(1), "b", "two")

	data, err := xmlcodec.MarshalIndent(h, "", "  ")
	require.NoError(t, err)

	assert.Contains(t, string(data), `<root KRB_Artificial="">`)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, h.Equal(back))

	empty, err := xmlcodec.Marshal(hash.New())
	require.NoError(t, err)
	back, err = xmlcodec.Unmarshal(empty)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
}

func TestHandWrittenDocuments(t *testing.T) {
	artificial := `<?xml version="1.0"?>
<root KRB_Artificial="">
  <a KRB_Type="INT32">1</a>
  <b>text</b>
  <c>
    <d KRB_Type="BOOL">true</d>
  </c>
</root>`
	h, err := xmlcodec.Unmarshal([]byte(artificial))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, h.Keys())
	assert.Equal(t, int32(1), mustGet(t, h, "a"))
	assert.Equal(t, "text", mustGet(t, h, "b"))
	assert.Equal(t, true, mustGet(t, h, "c.d"))

	explicit := `<device KRB_Type="HASH"><state KRB_Type="STRING">ON</state></device>`
	h, err = xmlcodec.Unmarshal([]byte(explicit))
	require.NoError(t, err)
	assert.Equal(t, []string{"device"}, h.Keys())
	assert.Equal(t, "ON", mustGet(t, h, "device.state"))
}

func allKinds(t *testing.T) *hash.Hash {
	h := hash.New()
	set := func(path string, k types.Kind, v any) {
		require.NoError(t, h.SetValue(path, types.MustValue(k, v)))
	}
	set("bool", types.Bool, true)
	set("char", types.Char, byte('c'))
	set("i8", types.Int8, int8(-8))
	set("u8", types.Uint8, uint8(8))
	set("i16", types.Int16, int16(-16))
	set("u16", types.Uint16, uint16(16))
	set("i32", types.Int32, int32(-32))
	set("u32", types.Uint32, uint32(32))
	set("i64", types.Int64, int64(math.MinInt64))
	set("u64", types.Uint64, uint64(math.MaxUint64))
	set("f", types.Float, float32(1.25))
	set("d", types.Double, math.Pi)
	set("nan", types.Double, math.NaN())
	set("inf", types.Double, math.Inf(-1))
	set("cf", types.ComplexFloat, complex64(complex(1, -1)))
	set("cd", types.ComplexDouble, complex(2, 0.5))
	set("s", types.String, " héllo <world> &\n ")
	set("empty", types.String, "")
	set("none", types.None, nil)
	set("vb", types.VectorBool, []bool{true, false, true})
	set("vc", types.VectorChar, []byte{0, 1, 255})
	set("vi8", types.VectorInt8, []int8{-1, 2})
	set("vu8", types.VectorUint8, []uint8{3, 4})
	set("vi16", types.VectorInt16, []int16{-300})
	set("vu16", types.VectorUint16, []uint16{300})
	set("vi32", types.VectorInt32, []int32{})
	set("vu32", types.VectorUint32, []uint32{1 << 31})
	set("vi64", types.VectorInt64, []int64{-1 << 40})
	set("vu64", types.VectorUint64, []uint64{1 << 63})
	set("vf", types.VectorFloat, []float32{0.5})
	set("vd", types.VectorDouble, []float64{1e-300, 2})
	set("vcf", types.VectorComplexFloat, []complex64{complex(1, 2), complex(-3, 0)})
	set("vcd", types.VectorComplexDouble, []complex128{complex(3, 4)})
	set("vs", types.VectorString, []string{"a", "b c"})
	set("vsEmptyMember", types.VectorString, []string{"", "a"})
	set("vsEmpty", types.VectorString, []string{})
	set("ba", types.ByteArray, []byte("raw\x00bytes"))
	require.NoError(t, h.Set("node.leaf", "x"))
	require.NoError(t, h.Set("node.empty", hash.New()))
	require.NoError(t, h.Set("rows", []*hash.Hash{hash.MustBuild("a", 1), hash.New()}))
	require.NoError(t, h.SetAttribute("d", "unitSymbol", "rad"))
	require.NoError(t, h.SetAttribute("d", "alarm", []float64{1, 2}))
	require.NoError(t, h.SetAttribute("d", "raw", []byte{9, 8}))
	require.NoError(t, h.SetAttribute("d", "meta", hash.MustBuild("k", "v")))
	require.NoError(t, h.SetAttribute("node", "rows", []*hash.Hash{hash.MustBuild("r", 1)}))
	return h
}

func TestAllKindsRoundTrip(t *testing.T) {

	// Given
	h := allKinds(t)

	// When
	data, err := xmlcodec.MarshalIndent(h, "", "\t")
	require.NoError(t, err)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)

	// Then
	assert.True(t, h.Equal(back), "xml:\n%s\ndecoded:\n%s", data, back)
	assert.Equal(t, h.Keys(), back.Keys())
}

func TestCrossCodecEquivalence(t *testing.T) {
	h := allKinds(t)

	x, err := xmlcodec.Marshal(h)
	require.NoError(t, err)
	fromXML, err := xmlcodec.Unmarshal(x)
	require.NoError(t, err)

	b, err := bincodec.Marshal(h)
	require.NoError(t, err)
	fromBin, err := bincodec.Unmarshal(b)
	require.NoError(t, err)

	assert.True(t, fromXML.Equal(fromBin))
}

func TestLiftedAttributes(t *testing.T) {
	h := hash.MustBuild("node.x", int32(1), "other", "y")
	require.NoError(t, h.SetAttribute("node", "rows", []*hash.Hash{hash.MustBuild("r", 1)}))

	data, err := xmlcodec.Marshal(h)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `<_attr_rows_node KRB_Type="VECTOR_HASH">`)
	assert.Contains(t, text, `rows="KRB_VECTOR_HASH:_attr_rows_node"`)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, h.Equal(back))
	assert.Equal(t, []string{"node", "other"}, back.Keys())
}

func TestSingleEntryWithLiftedAttributeUsesArtificialRoot(t *testing.T) {
	h := hash.MustBuild("node.x", int32(1))
	require.NoError(t, h.SetAttribute("node", "meta", hash.MustBuild("k", "v")))

	data, err := xmlcodec.Marshal(h)
	require.NoError(t, err)

	assert.Contains(t, string(data), `KRB_Artificial=""`)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, h.Equal(back))
}

func TestStringAttributeThatLooksTyped(t *testing.T) {
	h := hash.MustBuild("a", "b")
	require.NoError(t, h.SetAttribute("a", "note", "KRB_INT32:5"))

	data, err := xmlcodec.Marshal(h)
	require.NoError(t, err)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)

	v, err := back.GetAttribute("a", "note")
	require.NoError(t, err)
	assert.Equal(t, "KRB_INT32:5", v)
}

func TestSchemaValue(t *testing.T) {
	s := schema.New("Motor")
	require.NoError(t, schema.DoubleElement(s).Key("velocity").Unit("m/s").MaxInc(5).DefaultValue(1).Commit())
	h := hash.New()
	require.NoError(t, h.Set("schema", s))
	require.NoError(t, h.Set("id", "motor/1"))

	data, err := xmlcodec.Marshal(h)
	require.NoError(t, err)
	assert.Contains(t, string(data), `KRB_Type="SCHEMA" KRB_Root="Motor"`)
	back, err := xmlcodec.Unmarshal(data)
	require.NoError(t, err)

	v, err := hash.Value[hash.SchemaValue](back, "schema")
	require.NoError(t, err)
	assert.True(t, s.Equal(schema.AsSchema(v)))
}

func TestWriterRejects(t *testing.T) {
	_, err := xmlcodec.Marshal(hash.MustBuild("1abc", 1))
	assert.ErrorIs(t, err, types.ErrType)

	_, err = xmlcodec.Marshal(hash.MustBuild("vs", []string{"a,b"}))
	assert.ErrorIs(t, err, types.ErrType)

	_, err = xmlcodec.Marshal(hash.MustBuild("vs", []string{""}))
	assert.ErrorIs(t, err, types.ErrType)

	_, err = xmlcodec.Marshal(hash.MustBuild("a.b", 1, "c", 2).Flatten("."))
	assert.ErrorIs(t, err, types.ErrType)

	h := hash.MustBuild("a", 1)
	require.NoError(t, h.SetAttribute("a", "KRB_Type", "x"))
	_, err = xmlcodec.Marshal(h)
	assert.ErrorIs(t, err, types.ErrType)
}

func TestMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"syntax", `<a KRB_Type="INT32">1</b>`, types.ErrParse},
		{"no root", ``, types.ErrParse},
		{"two roots", `<a>1</a><b>2</b>`, types.ErrParse},
		{"unknown kind", `<a KRB_Type="INT33">1</a>`, types.ErrUnknownType},
		{"bad number", `<a KRB_Type="INT32">one</a>`, types.ErrParse},
		{"out of range", `<a KRB_Type="UINT8">256</a>`, types.ErrParse},
		{"leaf with children", `<a KRB_Type="INT32"><b/></a>`, types.ErrParse},
		{"text in hash", `<a KRB_Type="HASH">x<b/></a>`, types.ErrParse},
		{"bad item", `<a KRB_Type="VECTOR_HASH"><x/></a>`, types.ErrParse},
		{"pointer kind", `<a KRB_Type="PTR_INT32">1</a>`, types.ErrParse},
		{"bad base64", `<a KRB_Type="BYTE_ARRAY">!!!</a>`, types.ErrParse},
		{"bad attribute", `<a KRB_Type="INT32" x="KRB_INT32:x">1</a>`, types.ErrParse},
		{"missing lifted", `<root KRB_Artificial=""><a x="KRB_HASH:_attr_x_a">1</a></root>`, types.ErrParse},
		{"duplicate", `<root KRB_Artificial=""><a>1</a><a>2</a></root>`, types.ErrDuplicateKey},
		{"dotted key", `<root KRB_Artificial=""><a.b KRB_Type="INT32">1</a.b><c KRB_Type="INT32">2</c></root>`, types.ErrKey},
		{"non-ASCII key", `<hé KRB_Type="INT32">1</hé>`, types.ErrKey},
		{"long key", "<" + longKey + ` KRB_Type="INT32">1</` + longKey + ">", types.ErrKey},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := xmlcodec.Unmarshal([]byte(c.in))
			assert.ErrorIs(t, err, c.want)
		})
	}
}

var longKey = strings.Repeat("k", hash.MaxKeyLength+1)

func TestLongestKeyIsAccepted(t *testing.T) {
	key := strings.Repeat("k", hash.MaxKeyLength)
	h, err := xmlcodec.Unmarshal([]byte("<" + key + ` KRB_Type="INT32">1</` + key + ">"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), mustGet(t, h, key))
}

func TestDeepNestingIsRefused(t *testing.T) {
	in := strings.Repeat("<a>", xmlcodec.MaxDepth+1) + strings.Repeat("</a>", xmlcodec.MaxDepth+1)
	_, err := xmlcodec.Unmarshal([]byte(in))
	assert.ErrorIs(t, err, types.ErrResource)
}

func TestNDArrayConsistency(t *testing.T) {
	in := `<image KRB_Type="HASH" __classId="NDArray">` +
		`<data KRB_Type="BYTE_ARRAY">AAAAAAA=</data>` +
		`<type KRB_Type="INT32">10</type>` +
		`<shape KRB_Type="VECTOR_UINT64">2,3</shape>` +
		`</image>`
	_, err := xmlcodec.Unmarshal([]byte(in))
	require.ErrorIs(t, err, types.ErrInconsistentArray)
	assert.Contains(t, err.Error(), "5 are too few bytes for shape [2,3] of UINT16")
}

func mustGet(t *testing.T, h *hash.Hash, path string) any {
	v, err := h.Get(path)
	require.NoError(t, err)
	return v
}
