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

package xmlcodec

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
)

// MaxDepth bounds the element nesting a reader accepts.
const MaxDepth = 512

// Unmarshal decodes the single document in data.
func Unmarshal(data []byte) (*hash.Hash, error) {
	return NewDecoder(bytes.NewReader(data)).Decode()
}

type Decoder struct {
	dec *xml.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: xml.NewDecoder(r)}
}

// element is the parsed form of one XML element.
type element struct {
	name     string
	path     string
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
	offset   int
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Decode reads one document. Both an explicit root entry and the artificial
// root wrapper are accepted.
func (d *Decoder) Decode() (*hash.Hash, error) {
	root, err := d.parse()
	if err != nil {
		return nil, err
	}
	if _, ok := root.attr(ArtificialAttr); ok {
		return decodeHash(root)
	}
	top := &element{children: []*element{root}}
	return decodeHash(top)
}

func (d *Decoder) parse() (*element, error) {
	var (
		stack []*element
		root  *element
	)
	for {
		offset := int(d.dec.InputOffset())
		tok, err := d.dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, types.NewParseError(offset, types.Hash, err.Error(), err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, types.NewParseError(offset, types.Hash, "more than one root element")
			}
			if len(stack) >= MaxDepth {
				return nil, types.NewResourceError("elements nested deeper than %d", MaxDepth)
			}
			e := &element{name: t.Name.Local, attrs: t.Copy().Attr, offset: offset}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
				e.path = hash.JoinPath(parent.path, e.name)
			} else {
				root = e
				e.path = e.name
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, types.NewParseError(int(d.dec.InputOffset()), types.Hash, "no root element")
	}
	if len(stack) > 0 {
		return nil, types.NewParseError(int(d.dec.InputOffset()), types.Hash, "unexpected end of document")
	}
	return root, nil
}

func parseError(e *element, k types.Kind, format string, args ...any) error {
	return types.NewParseError(e.offset, k, fmt.Sprintf("element %q: ", e.path)+fmt.Sprintf(format, args...))
}

// decodeHash turns the children of e into a Hash. Children referenced by a
// sibling's lifted attribute become attribute values instead of entries.
func decodeHash(e *element) (*hash.Hash, error) {
	lifted := make(map[string]types.Value)
	for _, c := range e.children {
		for _, a := range c.attrs {
			if k, ref, ok := typedText(a.Value); ok && k.IsAggregate() {
				lifted[ref] = types.Value{}
			}
		}
	}
	for _, c := range e.children {
		if _, ok := lifted[c.name]; !ok {
			continue
		}
		v, err := decodeValue(c)
		if err != nil {
			return nil, err
		}
		lifted[c.name] = v
	}
	h := hash.New()
	for _, c := range e.children {
		if _, ok := lifted[c.name]; ok {
			continue
		}
		v, err := decodeValue(c)
		if err != nil {
			return nil, err
		}
		attrs, err := decodeAttrs(c, lifted)
		if err != nil {
			return nil, err
		}
		if v.Kind() == types.Hash {
			if err = hash.CheckNDArray(v.Data().(*hash.Hash), attrs); err != nil {
				return nil, types.Wrap(err, "element %q", c.path)
			}
		}
		if err = h.Append(c.name, v, attrs); err != nil {
			return nil, types.Wrap(err, "element %q", c.path)
		}
	}
	return h, nil
}

func decodeValue(e *element) (types.Value, error) {
	k := types.String
	if len(e.children) > 0 {
		k = types.Hash
	}
	if name, ok := e.attr(TypeAttr); ok {
		var err error
		if k, err = types.FromName(name); err != nil {
			return types.Value{}, types.Wrap(err, "element %q", e.path)
		}
	}
	if !k.Serializable() {
		return types.Value{}, parseError(e, k, "kind cannot be carried")
	}
	text := e.text.String()
	if k.IsAggregate() {
		if strings.TrimSpace(text) != "" {
			return types.Value{}, parseError(e, k, "unexpected text")
		}
	} else if len(e.children) > 0 {
		return types.Value{}, parseError(e, k, "leaf with child elements")
	}
	switch k {
	case types.Hash:
		h, err := decodeHash(e)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewValue(k, h)
	case types.Schema:
		params, err := decodeHash(e)
		if err != nil {
			return types.Value{}, err
		}
		root, _ := e.attr(RootNameAttr)
		return types.NewValue(k, schema.FromHash(root, params))
	case types.VectorHash:
		items := make([]*hash.Hash, 0, len(e.children))
		for _, c := range e.children {
			if c.name != ItemElement {
				return types.Value{}, parseError(c, k, "expected %s", ItemElement)
			}
			h, err := decodeHash(c)
			if err != nil {
				return types.Value{}, err
			}
			items = append(items, h)
		}
		return types.NewValue(k, items)
	}
	v, err := parseText(text, k)
	if err != nil {
		return types.Value{}, types.NewParseError(e.offset, k, fmt.Sprintf("element %q: %v", e.path, err), err)
	}
	return v, nil
}

func parseText(text string, k types.Kind) (types.Value, error) {
	if k.IsBytes() {
		b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return types.Value{}, err
		}
		return types.NewValue(k, b)
	}
	return types.FromText(text, k)
}

func decodeAttrs(e *element, lifted map[string]types.Value) (*hash.Attributes, error) {
	attrs := hash.NewAttributes()
	for _, a := range e.attrs {
		name := a.Name.Local
		if a.Name.Space != "" || name == TypeAttr || name == RootNameAttr || name == ArtificialAttr {
			continue
		}
		k, text, typed := typedText(a.Value)
		switch {
		case !typed:
			attrs.SetValue(name, types.MustValue(types.String, a.Value))
		case k.IsAggregate():
			v, ok := lifted[text]
			if !ok || v.Kind() != k {
				return nil, parseError(e, k, "attribute %q refers to missing element %q", name, text)
			}
			attrs.SetValue(name, v)
		default:
			v, err := parseText(text, k)
			if err != nil {
				return nil, types.NewParseError(e.offset, k, fmt.Sprintf("element %q attribute %q: %v", e.path, name, err), err)
			}
			attrs.SetValue(name, v)
		}
	}
	return attrs, nil
}
