package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadSchema reads a schema description from a yaml or json file,
// chosen by extension.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var schema Schema
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &schema)
	} else {
		err = yaml.Unmarshal(data, &schema)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema %s: %w", path, err)
	}

	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("schema %s has no fields", path)
	}
	return &schema, nil
}

// LoadConditions reads a conditions file (yaml or json by extension).
func LoadConditions(path string) ([]ConditionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file ConditionsFile
	if filepath.Ext(path) == ".json" {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse conditions %s: %w", path, err)
	}

	if len(file.Conditions) == 0 {
		return nil, fmt.Errorf("conditions file %s is empty", path)
	}
	for i, c := range file.Conditions {
		if len(c.ColumnValues) == 0 {
			return nil, fmt.Errorf("condition %d has no column values", i)
		}
	}
	return file.Conditions, nil
}
