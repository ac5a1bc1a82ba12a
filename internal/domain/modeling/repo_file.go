package modeling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	engine "github.com/hacs/hacs/internal/platform/modeling"
)

type dirSource struct{ dir string }

// NewDirSource reads descriptors from .json, .yaml and .yml files in dir.
// A file holds either one descriptor or a list of them.
func NewDirSource(dir string) SchemaSource { return &dirSource{dir: dir} }

func (s *dirSource) Name() string { return "dir:" + s.dir }

func (s *dirSource) Load(ctx context.Context) ([]engine.SchemaDescriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []engine.SchemaDescriptor
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, err
		}
		ds, err := DecodeDescriptors(name, raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, ds...)
	}
	return out, nil
}

// DecodeDescriptors parses raw as JSON or YAML depending on name's extension.
func DecodeDescriptors(name string, raw []byte) ([]engine.SchemaDescriptor, error) {
	unmarshal := json.Unmarshal
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".yaml" || ext == ".yml" {
		unmarshal = yaml.Unmarshal
	}

	var list []engine.SchemaDescriptor
	if err := unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var one engine.SchemaDescriptor
	if err := unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []engine.SchemaDescriptor{one}, nil
}
