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

// Package xmlcodec reads and writes the XML form of a Hash.
//
// Every entry becomes an element named after its key with a KRB_Type
// attribute naming its kind. Non-string entry attributes are written as
// "KRB_<KIND>:<text>". A Hash with more than one top-level key is wrapped in
// <root KRB_Artificial="">. Attributes holding a HASH, VECTOR_HASH or SCHEMA
// are lifted into a sibling element named _attr_<attribute>_<key> that the
// attribute value refers to.
package xmlcodec

import (
	"encoding/base64"
	"encoding/xml"
	"io"
	"strings"
	"unicode"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"github.com/valyala/bytebufferpool"
)

const (
	TypeAttr       = "KRB_Type"
	ArtificialAttr = "KRB_Artificial"
	RootNameAttr   = "KRB_Root"
	ItemElement    = "KRB_Item"
	ArtificialRoot = "root"

	typedPrefix  = "KRB_"
	liftedPrefix = "_attr_"
)

// Marshal encodes h without indentation.
func Marshal(h *hash.Hash) ([]byte, error) {
	return MarshalIndent(h, "", "")
}

// MarshalIndent encodes h, indenting nested elements.
func MarshalIndent(h *hash.Hash, prefix, indent string) ([]byte, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	enc := NewEncoder(buf)
	enc.Indent(prefix, indent)
	if err := enc.Encode(h); err != nil {
		return nil, err
	}
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out, nil
}

type Encoder struct {
	enc *xml.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: xml.NewEncoder(w)}
}

func (e *Encoder) Indent(prefix, indent string) {
	e.enc.Indent(prefix, indent)
}

// Encode writes the XML declaration followed by h.
func (e *Encoder) Encode(h *hash.Hash) error {
	err := e.enc.EncodeToken(xml.ProcInst{Target: "xml", Inst: []byte(`version="1.0" encoding="UTF-8"`)})
	if err != nil {
		return err
	}
	nodes := h.Nodes()
	if len(nodes) == 1 && !needsLifting(nodes[0].Attributes()) {
		if err = e.entry(nodes[0]); err != nil {
			return err
		}
		return e.enc.Flush()
	}
	root := xml.StartElement{
		Name: xml.Name{Local: ArtificialRoot},
		Attr: []xml.Attr{{Name: xml.Name{Local: ArtificialAttr}, Value: ""}},
	}
	if err = e.enc.EncodeToken(root); err != nil {
		return err
	}
	if err = e.hash(h); err != nil {
		return err
	}
	if err = e.enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return e.enc.Flush()
}

func needsLifting(attrs *hash.Attributes) bool {
	lift := false
	_ = attrs.Each(func(_ string, v types.Value) error {
		lift = lift || v.Kind().IsAggregate()
		return nil
	})
	return lift
}

func liftedName(attr, key string) string {
	return liftedPrefix + attr + "_" + key
}

// hash writes the entries of h, each preceded by its lifted attributes.
func (e *Encoder) hash(h *hash.Hash) error {
	used := make(map[string]bool, h.Len())
	for _, k := range h.Keys() {
		used[k] = true
	}
	for _, n := range h.Nodes() {
		err := n.Attributes().Each(func(name string, v types.Value) error {
			if !v.Kind().IsAggregate() {
				return nil
			}
			ref := liftedName(name, n.Key())
			if used[ref] {
				return types.NewKeyError("lifted attribute %q of %q collides with another element", name, n.Key())
			}
			used[ref] = true
			return e.element(ref, v, nil)
		})
		if err != nil {
			return err
		}
		if err = e.entry(n); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) entry(n *hash.Node) error {
	attrs := make([]xml.Attr, 0, n.Attributes().Len())
	err := n.Attributes().Each(func(name string, v types.Value) error {
		if !validName(name) || strings.HasPrefix(name, typedPrefix) {
			return types.NewTypeError("attribute %q of %q cannot be written as XML", name, n.Key())
		}
		text, err := attrText(name, n.Key(), v)
		if err != nil {
			return types.Wrap(err, "attribute %q of %q", name, n.Key())
		}
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: name}, Value: text})
		return nil
	})
	if err != nil {
		return err
	}
	return e.element(n.Key(), n.Value(), attrs)
}

func (e *Encoder) element(name string, v types.Value, attrs []xml.Attr) error {
	if !validName(name) || strings.IndexByte(name, hash.Separator) >= 0 {
		return types.NewTypeError("key %q is not a valid XML element name", name)
	}
	if !v.Kind().Serializable() {
		return types.NewTypeError("key %q: kind %s is not serializable", name, v.Kind())
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: TypeAttr}, Value: v.Kind().String()})
	if v.Kind() == types.Schema {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: RootNameAttr}, Value: v.Data().(hash.SchemaValue).RootName()})
	}
	start.Attr = append(start.Attr, attrs...)
	if err := e.enc.EncodeToken(start); err != nil {
		return err
	}
	if err := e.content(name, v); err != nil {
		return err
	}
	return e.enc.EncodeToken(start.End())
}

func (e *Encoder) content(name string, v types.Value) error {
	switch v.Kind() {
	case types.None:
		return nil
	case types.Hash:
		return types.Wrap(e.hash(v.Data().(*hash.Hash)), "key %q", name)
	case types.Schema:
		return types.Wrap(e.hash(v.Data().(hash.SchemaValue).Parameters()), "schema %q", name)
	case types.VectorHash:
		for i, item := range v.Data().([]*hash.Hash) {
			start := xml.StartElement{Name: xml.Name{Local: ItemElement}}
			if err := e.enc.EncodeToken(start); err != nil {
				return err
			}
			if err := e.hash(item); err != nil {
				return types.Wrap(err, "key %q element %d", name, i)
			}
			if err := e.enc.EncodeToken(start.End()); err != nil {
				return err
			}
		}
		return nil
	}
	text, err := valueText(v)
	if err != nil {
		return types.Wrap(err, "key %q", name)
	}
	return e.enc.EncodeToken(xml.CharData(text))
}

// valueText is the element text of a leaf. Byte payloads are base64.
func valueText(v types.Value) (string, error) {
	if v.Kind().IsBytes() {
		return base64.StdEncoding.EncodeToString(v.Data().([]byte)), nil
	}
	if v.Kind() == types.Char {
		if c := v.Data().(byte); c < 0x20 || c >= 0x7f {
			return "", types.NewTypeError("CHAR %#x has no XML text form", c)
		}
	}
	return types.ToText(v)
}

func attrText(name, key string, v types.Value) (string, error) {
	switch {
	case v.Kind() == types.String:
		s := v.Data().(string)
		if _, _, typed := typedText(s); typed {
			return typedPrefix + types.String.String() + ":" + s, nil
		}
		return s, nil
	case v.Kind().IsAggregate():
		return typedPrefix + v.Kind().String() + ":" + liftedName(name, key), nil
	}
	text, err := valueText(v)
	if err != nil {
		return "", err
	}
	return typedPrefix + v.Kind().String() + ":" + text, nil
}

// typedText splits "KRB_<KIND>:<text>".
func typedText(s string) (types.Kind, string, bool) {
	if !strings.HasPrefix(s, typedPrefix) {
		return types.Unknown, "", false
	}
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return types.Unknown, "", false
	}
	k, err := types.FromName(s[len(typedPrefix):i])
	if err != nil {
		return types.Unknown, "", false
	}
	return k, s[i+1:], true
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}
