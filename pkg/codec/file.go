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

package codec

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/European-XFEL/Karabo-sub014/internal/log"
	"github.com/European-XFEL/Karabo-sub014/pkg/hash"
	"github.com/European-XFEL/Karabo-sub014/pkg/schema"
	"github.com/European-XFEL/Karabo-sub014/pkg/types"
	"go.uber.org/zap"
)

// FormatOf picks the format from a .bin or .xml file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin":
		return Bin, nil
	case ".xml":
		return Xml, nil
	}
	return "", types.NewKeyError("%s: cannot tell the format from the file extension", path)
}

// LoadFile reads the single Hash stored in path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*hash.Hash, error) {
	logger := log.FromContext(ctx)
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	c, err := New(f, opts...)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h, err := c.Unmarshal(data)
	if err != nil {
		logger.Error("failed to decode file", zap.String("path", path), zap.Error(err))
		return nil, types.Wrap(err, "%s", path)
	}
	logger.Debug("loaded file", zap.String("path", path), zap.String("format", string(f)), zap.Int("bytes", len(data)))
	return h, nil
}

// SaveFile writes h to path in the format its extension names. XML files
// are indented unless an option says otherwise.
func SaveFile(ctx context.Context, path string, h *hash.Hash, opts ...Option) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	c, err := New(f, append([]Option{WithIndent("  ")}, opts...)...)
	if err != nil {
		return err
	}
	data, err := c.Marshal(h)
	if err != nil {
		return types.Wrap(err, "%s", path)
	}
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.FromContext(ctx).Debug("saved file", zap.String("path", path), zap.String("format", string(f)), zap.Int("bytes", len(data)))
	return nil
}

// LoadSchemaFile reads a file holding one SCHEMA entry. A file holding a
// plain Hash is taken as the parameters of a schema named after the file.
func LoadSchemaFile(ctx context.Context, path string, opts ...Option) (*schema.Schema, error) {
	h, err := LoadFile(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	if nodes := h.Nodes(); len(nodes) == 1 && nodes[0].Kind() == types.Schema {
		return schema.AsSchema(nodes[0].Data().(hash.SchemaValue)), nil
	}
	root := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return schema.FromHash(root, h), nil
}

// SaveSchemaFile stores s as the single entry named after its root.
func SaveSchemaFile(ctx context.Context, path string, s *schema.Schema, opts ...Option) error {
	key := s.RootName()
	if key == "" {
		key = "schema"
	}
	h := hash.New()
	if err := h.Set(key, s); err != nil {
		return err
	}
	return SaveFile(ctx, path, h, opts...)
}
