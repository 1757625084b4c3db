package scan

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// batchFile is the on-disk scan batch. A bare list of definitions is accepted too.
type batchFile struct {
	Scans []Definition `json:"scans" yaml:"scans"`
}

// LoadDefinitions reads a scan batch from a .json, .yaml or .yml file.
// Definitions are decoded but not validated.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return decodeDefinitions(data, json.Unmarshal)
	case ".yaml", ".yml":
		return decodeDefinitions(data, yaml.Unmarshal)
	}
	return nil, fmt.Errorf("unsupported scan file extension %q", filepath.Ext(path))
}

func decodeDefinitions(data []byte, unmarshal func([]byte, interface{}) error) ([]Definition, error) {
	var list []Definition
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}

	var batch batchFile
	if err := unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("failed to decode scan file: %w", err)
	}
	return batch.Scans, nil
}

// FindDefinition returns the definition with the given name.
func FindDefinition(defs []Definition, name string) (Definition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
