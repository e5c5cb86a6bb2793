// Package records reads and writes the YAML records that taxsync reconciles.
//
// Taxonomy records live at any depth below the source directory and carry an
// id plus optional name and category. Detection records live directly in the
// derived directory, one file per id, and carry the id and a keyword list.
// Both sides are loaded into ordered sets keyed by id; documents without a
// usable id are skipped rather than reported as failures.
package records

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/taxsync/pkg/constants"
)

// Record is a parsed YAML document. Only the id key is interpreted.
type Record map[string]any

// ParseRecord parses a YAML document into a Record.
// An empty document yields an empty Record and no error. A repeated key
// keeps its last value.
func ParseRecord(data []byte) (Record, error) {
	var raw map[string]any
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.AllowDuplicateMapKey()); err != nil {
		return nil, err
	}
	return Record(raw), nil
}

// ID returns the record identifier in string form.
// Null, empty, blank, and non-scalar ids report false.
func (r Record) ID() (string, bool) {
	id := r.Field(constants.FieldID)
	if strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

// Field returns a scalar field as a string, or "" when absent or not a scalar.
func (r Record) Field(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

// SourceRecord is the taxonomy side of a record.
type SourceRecord struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Path     string `json:"path" yaml:"path"`
}

// DerivedEntry locates an existing detection record.
type DerivedEntry struct {
	ID   string `json:"id" yaml:"id"`
	Path string `json:"path" yaml:"path"`
}

// DerivedRecord is the detection document written for a new id.
// Field order is the serialized key order.
type DerivedRecord struct {
	ID       string   `yaml:"id"`
	Keywords []string `yaml:"keywords"`
}

// NewDerivedRecord returns the default detection record for id.
func NewDerivedRecord(id string) DerivedRecord {
	return DerivedRecord{ID: id, Keywords: []string{id}}
}

// Marshal serializes the record in block style, one key per line.
func (d DerivedRecord) Marshal() ([]byte, error) {
	return yaml.MarshalWithOptions(d,
		yaml.Indent(2),
		yaml.IndentSequence(false),
	)
}
