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

package types

import (
	"errors"
	"strconv"
	"strings"
)

// ToText renders v in the locale independent textual form used by STRING
// conversions and the XML codec. Vectors are comma separated; VECTOR_CHAR
// and BYTE_ARRAY are rendered as raw bytes.
func ToText(v Value) (string, error) {
	switch d := v.data.(type) {
	case nil:
		if v.kind == None {
			return "", nil
		}
	case bool:
		if d {
			return "true", nil
		}
		return "false", nil
	case string:
		return d, nil
	case []bool:
		return joinVector(len(d), func(i int) string { return boolDigit(d[i]) }), nil
	case []byte:
		if v.kind == VectorUint8 {
			return joinVector(len(d), func(i int) string { return strconv.FormatUint(uint64(d[i]), 10) }), nil
		}
		return string(d), nil
	case []int8:
		return joinVector(len(d), func(i int) string { return strconv.FormatInt(int64(d[i]), 10) }), nil
	case []int16:
		return joinVector(len(d), func(i int) string { return strconv.FormatInt(int64(d[i]), 10) }), nil
	case []uint16:
		return joinVector(len(d), func(i int) string { return strconv.FormatUint(uint64(d[i]), 10) }), nil
	case []int32:
		return joinVector(len(d), func(i int) string { return strconv.FormatInt(int64(d[i]), 10) }), nil
	case []uint32:
		return joinVector(len(d), func(i int) string { return strconv.FormatUint(uint64(d[i]), 10) }), nil
	case []int64:
		return joinVector(len(d), func(i int) string { return strconv.FormatInt(d[i], 10) }), nil
	case []uint64:
		return joinVector(len(d), func(i int) string { return strconv.FormatUint(d[i], 10) }), nil
	case []float32:
		return joinVector(len(d), func(i int) string { return formatFloat(float64(d[i]), 32) }), nil
	case []float64:
		return joinVector(len(d), func(i int) string { return formatFloat(d[i], 64) }), nil
	case []complex64:
		return joinVector(len(d), func(i int) string { return formatComplex(complex128(d[i]), 32) }), nil
	case []complex128:
		return joinVector(len(d), func(i int) string { return formatComplex(d[i], 64) }), nil
	case []string:
		if len(d) == 1 && d[0] == "" {
			return "", NewTypeError("VECTOR_STRING with a single empty member has no text form")
		}
		for _, s := range d {
			if strings.Contains(s, ",") {
				return "", NewTypeError("VECTOR_STRING member %q contains the separator ','", s)
			}
		}
		return strings.Join(d, ","), nil
	default:
		if v.kind == Char {
			return string([]byte{d.(byte)}), nil
		}
		if s, ok := scalarText(d); ok {
			return s, nil
		}
	}
	return "", NewTypeError("%s has no textual form", v.kind)
}

func scalarText(d any) (string, bool) {
	switch n := d.(type) {
	case int8:
		return strconv.FormatInt(int64(n), 10), true
	case uint8:
		return strconv.FormatUint(uint64(n), 10), true
	case int16:
		return strconv.FormatInt(int64(n), 10), true
	case uint16:
		return strconv.FormatUint(uint64(n), 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case uint32:
		return strconv.FormatUint(uint64(n), 10), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case float32:
		return formatFloat(float64(n), 32), true
	case float64:
		return formatFloat(n, 64), true
	case complex64:
		return formatComplex(complex128(n), 32), true
	case complex128:
		return formatComplex(n, 64), true
	}
	return "", false
}

func joinVector(n int, elem func(int) string) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(elem(i))
	}
	return sb.String()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// formatFloat uses the shortest %g form that parses back to the same bits.
func formatFloat(f float64, bits int) string {
	return strconv.FormatFloat(f, 'g', -1, bits)
}

func formatComplex(c complex128, bits int) string {
	return "(" + formatFloat(real(c), bits) + "," + formatFloat(imag(c), bits) + ")"
}

// FromText parses s into a value of kind k. Surrounding whitespace is ignored
// except for STRING and the members of VECTOR_STRING.
func FromText(s string, k Kind) (Value, error) {
	switch k {
	case String:
		return Value{kind: k, data: s}, nil
	case VectorChar, ByteArray:
		return Value{kind: k, data: []byte(s)}, nil
	case None:
		if strings.TrimSpace(s) != "" {
			return Value{}, NewTypeError("NONE cannot be parsed from %q", s)
		}
		return NoneValue(), nil
	case VectorString:
		if s == "" {
			return Value{kind: k, data: []string{}}, nil
		}
		return Value{kind: k, data: strings.Split(s, ",")}, nil
	}
	if k.IsScalar() {
		d, err := parseScalar(s, k)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: k, data: d}, nil
	}
	if k.IsVector() {
		elem, _ := k.ElementKind()
		var parts []string
		if t := strings.TrimSpace(s); t != "" {
			parts = splitVector(t, elem.IsComplex())
		}
		out, err := makeVector(k, len(parts), func(i int) (any, error) {
			return parseScalar(parts[i], elem)
		})
		if err != nil {
			return Value{}, err
		}
		return Value{kind: k, data: out}, nil
	}
	return Value{}, NewTypeError("%s cannot be parsed from text", k)
}

// splitVector splits on commas that are not inside parentheses.
func splitVector(s string, complexElems bool) []string {
	if !complexElems {
		return strings.Split(s, ",")
	}
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func parseScalar(s string, k Kind) (any, error) {
	t := strings.TrimSpace(s)
	switch k {
	case Bool:
		return parseBool(t)
	case Char:
		if len(s) == 1 {
			return s[0], nil
		}
		if len(t) == 1 {
			return t[0], nil
		}
		return nil, NewTypeError("CHAR needs exactly one byte, got %q", s)
	case Int8, Int16, Int32, Int64:
		i, err := parseInt(t, k.Size()*8)
		if err != nil {
			return nil, textError(err, t, k)
		}
		return narrowInt(i, k), nil
	case Uint8, Uint16, Uint32, Uint64:
		u, err := parseUint(t, k.Size()*8)
		if err != nil {
			return nil, textError(err, t, k)
		}
		return narrowUint(u, k), nil
	case Float:
		f, err := strconv.ParseFloat(t, 32)
		if err != nil {
			return nil, textError(err, t, k)
		}
		return float32(f), nil
	case Double:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return nil, textError(err, t, k)
		}
		return f, nil
	case ComplexFloat, ComplexDouble:
		bits := 64
		if k == ComplexFloat {
			bits = 32
		}
		c, err := parseComplex(t, bits)
		if err != nil {
			return nil, textError(err, t, k)
		}
		if k == ComplexFloat {
			return complex64(c), nil
		}
		return c, nil
	case String:
		return s, nil
	}
	return nil, NewTypeError("%s is not a scalar kind", k)
}

func parseBool(t string) (bool, error) {
	switch strings.ToLower(t) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, NewTypeError("cannot parse %q as BOOL", t)
}

func splitSign(t string) (neg bool, body string, base int) {
	body = t
	if strings.HasPrefix(body, "-") {
		neg, body = true, body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}
	base = 10
	if strings.HasPrefix(body, "0x") || strings.HasPrefix(body, "0X") {
		base, body = 16, body[2:]
	}
	return
}

func parseInt(t string, bits int) (int64, error) {
	neg, body, base := splitSign(t)
	if body == "" || body[0] == '-' || body[0] == '+' {
		return 0, strconv.ErrSyntax
	}
	u, err := strconv.ParseUint(body, base, 64)
	if err != nil {
		return 0, err
	}
	limit := uint64(1) << (bits - 1)
	if neg {
		if u > limit {
			return 0, strconv.ErrRange
		}
		return int64(-u), nil
	}
	if u >= limit {
		return 0, strconv.ErrRange
	}
	return int64(u), nil
}

func parseUint(t string, bits int) (uint64, error) {
	neg, body, base := splitSign(t)
	if body == "" || body[0] == '-' || body[0] == '+' {
		return 0, strconv.ErrSyntax
	}
	u, err := strconv.ParseUint(body, base, bits)
	if err != nil {
		return 0, err
	}
	if neg && u != 0 {
		return 0, strconv.ErrRange
	}
	return u, nil
}

func parseComplex(t string, bits int) (complex128, error) {
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		re, im, ok := strings.Cut(t[1:len(t)-1], ",")
		if !ok {
			return 0, strconv.ErrSyntax
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(re), bits)
		if err != nil {
			return 0, err
		}
		i, err := strconv.ParseFloat(strings.TrimSpace(im), bits)
		if err != nil {
			return 0, err
		}
		return complex(r, i), nil
	}
	r, err := strconv.ParseFloat(t, bits)
	if err != nil {
		return 0, err
	}
	return complex(r, 0), nil
}

func textError(err error, t string, k Kind) error {
	if errors.Is(err, strconv.ErrRange) {
		return NewRangeError("%q does not fit %s", t, k)
	}
	return NewTypeError("cannot parse %q as %s", t, k)
}

func narrowInt(i int64, k Kind) any {
	switch k {
	case Int8:
		return int8(i)
	case Int16:
		return int16(i)
	case Int32:
		return int32(i)
	}
	return i
}

func narrowUint(u uint64, k Kind) any {
	switch k {
	case Uint8, Char:
		return uint8(u)
	case Uint16:
		return uint16(u)
	case Uint32:
		return uint32(u)
	}
	return u
}
