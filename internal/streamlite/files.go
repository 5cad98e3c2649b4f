package streamlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dsjohal14/tourstack/internal/scope/content"
	"github.com/dsjohal14/tourstack/internal/scope/record"
)

// FileConnector reads seed files from a directory tree. Each *.yaml, *.yml or
// *.json file holds one or more documents of the form {kind, items: [...]},
// either as separate YAML documents or as a list.
type FileConnector struct {
	*BaseConnector
	dir string
}

// NewFileConnector creates a connector over dir
func NewFileConnector(dir string) *FileConnector {
	return &FileConnector{
		BaseConnector: NewBaseConnector("files:" + dir),
		dir:           dir,
	}
}

// Start checks that the directory exists
func (c *FileConnector) Start() error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return fmt.Errorf("seed directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("seed directory %s is not a directory", c.dir)
	}
	return c.BaseConnector.Start()
}

// Read parses every seed file, in path order
func (c *FileConnector) Read(ctx context.Context) ([]Batch, error) {
	var paths []string
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c.dir, err)
	}
	sort.Strings(paths)

	var batches []Batch
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		batches = append(batches, found...)
	}
	return batches, nil
}

// ReadFile parses one seed file
func ReadFile(path string) ([]Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var docs []record.Value
	if strings.EqualFold(filepath.Ext(path), ".json") {
		v, err := record.ParseJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		docs = append(docs, v)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var node yaml.Node
			if err := dec.Decode(&node); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			v, err := record.FromYAML(&node)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			docs = append(docs, v)
		}
	}

	var batches []Batch
	for _, doc := range docs {
		found, err := batchesOf(doc, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		batches = append(batches, found...)
	}
	return batches, nil
}

func batchesOf(doc record.Value, source string) ([]Batch, error) {
	switch doc.Kind() {
	case record.KindNull:
		return nil, nil
	case record.KindArray:
		var out []Batch
		for _, item := range doc.Items() {
			found, err := batchesOf(item, source)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
		return out, nil
	case record.KindObject:
		kind, err := content.ParseKind(doc.GetString("kind"))
		if err != nil {
			return nil, err
		}
		items, ok := doc.Get("items")
		if !ok || items.Kind() != record.KindArray {
			return nil, fmt.Errorf("%s: items must be a list", kind)
		}
		batch := Batch{Kind: kind, Source: source}
		for i, item := range items.Items() {
			if item.Kind() != record.KindObject {
				return nil, fmt.Errorf("%s item %d: expected an object, got %s", kind, i, item.Kind())
			}
			batch.Items = append(batch.Items, item)
		}
		return []Batch{batch}, nil
	default:
		return nil, fmt.Errorf("expected a document or a list of documents, got %s", doc.Kind())
	}
}
