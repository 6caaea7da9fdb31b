package ingestion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/poiesic/rolodex/core"
	"gopkg.in/yaml.v3"
)

// Dataset formats understood by DecodeDataset.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// dataset is the document shape {"employees": [...]}.
type dataset struct {
	Employees *[]core.Record `json:"employees" yaml:"employees"`
}

// LoadDataset reads employee records from a .json, .yaml or .yml file. The
// file holds either an object with an "employees" list or a bare list.
func LoadDataset(path string) ([]core.Record, error) {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		format = FormatJSON
	case ".yaml", ".yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("%w: unsupported dataset extension %q", core.ErrInput, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := DecodeDataset(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// DecodeDataset decodes records in the given format from r.
func DecodeDataset(r io.Reader, format string) ([]core.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return decodeJSON(data)
	case FormatYAML:
		return decodeYAML(data)
	default:
		return nil, fmt.Errorf("%w: unknown dataset format %q", core.ErrInput, format)
	}
}

func decodeJSON(data []byte) ([]core.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []core.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInput, err)
		}
		return records, nil
	}

	var doc dataset
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, err)
	}
	if doc.Employees == nil {
		return nil, fmt.Errorf("%w: dataset has no employees list", core.ErrInput)
	}
	return *doc.Employees, nil
}

func decodeYAML(data []byte) ([]core.Record, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: dataset is empty", core.ErrInput)
	}

	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var records []core.Record
		if err := node.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrInput, err)
		}
		return records, nil
	}

	var doc dataset
	if err := node.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInput, err)
	}
	if doc.Employees == nil {
		return nil, fmt.Errorf("%w: dataset has no employees list", core.ErrInput)
	}
	return *doc.Employees, nil
}
