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

package hash

import (
	"encoding/base64"
	"reflect"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"gopkg.in/yaml.v3"
)

// MarshalYAML renders h as a YAML mapping for inspection. Kinds and
// attributes go into line comments, so the output is not meant to be read
// back.
func (h *Hash) MarshalYAML() (interface{}, error) {
	return h.yamlNode()
}

// YAML renders h with yaml.v3.
func (h *Hash) YAML() ([]byte, error) {
	return yaml.Marshal(h)
}

func (h *Hash) yamlNode() (*yaml.Node, error) {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, n := range h.Nodes() {
		k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.key}
		v, err := yamlValue(n.value)
		if err != nil {
			return nil, types.Wrap(err, "%q", n.key)
		}
		// yaml.v3 drops key line comments in front of sequences
		if v.Kind == yaml.SequenceNode {
			k.HeadComment = yamlComment(n.value.Kind(), n.attrs)
		} else {
			k.LineComment = yamlComment(n.value.Kind(), n.attrs)
		}
		m.Content = append(m.Content, k, v)
	}
	return m, nil
}

func yamlComment(k types.Kind, attrs *Attributes) string {
	parts := []string{k.String()}
	_ = attrs.Each(func(name string, v types.Value) error {
		parts = append(parts, name+"="+summary(v))
		return nil
	})
	return strings.Join(parts, " ")
}

func yamlValue(v types.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case types.Hash:
		return v.Data().(*Hash).yamlNode()
	case types.VectorHash:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v.Data().([]*Hash) {
			n, err := e.yamlNode()
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	case types.Schema:
		s := v.Data().(SchemaValue)
		params, err := s.Parameters().yamlNode()
		if err != nil {
			return nil, err
		}
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: s.RootName()},
			params,
		}}, nil
	case types.VectorChar, types.ByteArray:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(v.Data().([]byte))}, nil
	case types.None:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}, nil
	}
	if v.Kind().IsVector() {
		elem, _ := v.Kind().ElementKind()
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		rv := reflect.ValueOf(v.Data())
		for i := 0; i < rv.Len(); i++ {
			e, err := types.NewValue(elem, rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			n, err := yamlScalar(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil
	}
	return yamlScalar(v)
}

func yamlScalar(v types.Value) (*yaml.Node, error) {
	s, err := types.ToText(v)
	if err != nil {
		return nil, err
	}
	tag := "!!str"
	switch {
	case v.Kind() == types.Bool:
		tag = "!!bool"
	case v.Kind().IsInteger() && v.Kind() != types.Char:
		tag = "!!int"
	case v.Kind().IsFloat():
		// untagged, so whole numbers print plainly instead of as "!!float 2"
		tag = ""
		switch s {
		case "NaN":
			s = ".nan"
		case "+Inf":
			s = ".inf"
		case "-Inf":
			s = "-.inf"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}, nil
}
