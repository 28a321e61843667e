package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Supported scenario file formats, selected by file extension.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCUE  = "cue"
)

// FormatError reports a malformed scenarios file.
type FormatError struct {
	Path    string // file path, empty when parsing raw bytes
	Index   int    // scenario index, -1 when the error is not tied to one scenario
	Key     string // binding name, empty when not tied to one key
	Message string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if e.Index >= 0 {
		fmt.Fprintf(&b, "scenario[%d]: ", e.Index)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, "key %q: ", e.Key)
	}
	b.WriteString(e.Message)
	return b.String()
}

func formatErrorf(index int, key, format string, args ...any) *FormatError {
	return &FormatError{Index: index, Key: key, Message: fmt.Sprintf(format, args...)}
}

// FormatFor returns the scenario format implied by a file extension.
func FormatFor(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported scenarios file extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path))
	}
}

// Load reads an ordered scenario list from path.
// The file format is chosen by extension.
func Load(path string) ([]Scenario, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenarios file: %w", err)
	}

	scenarios, err := Parse(format, data, filepath.Base(path))
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
		}
		return nil, err
	}
	return scenarios, nil
}

// Parse decodes scenarios in the given format. name is used for CUE
// source positions.
func Parse(format string, data []byte, name string) ([]Scenario, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	case FormatCUE:
		return ParseCUE(data, name)
	default:
		return nil, fmt.Errorf("unknown scenarios format %q", format)
	}
}

// ParseJSON decodes a JSON array of flat objects with string values.
func ParseJSON(data []byte) ([]Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, formatErrorf(-1, "", "invalid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, formatErrorf(-1, "", "expected a JSON array of scenarios")
	}

	scenarios := []Scenario{}
	for dec.More() {
		sc, err := decodeObject(dec)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				fe.Index = len(scenarios)
				return nil, fe
			}
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}

	if _, err := dec.Token(); err != nil {
		return nil, formatErrorf(-1, "", "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, formatErrorf(-1, "", "unexpected data after scenarios array")
	}
	return scenarios, nil
}

// decodeObject reads one flat object from dec, preserving key order.
func decodeObject(dec *json.Decoder) (Scenario, error) {
	var sc Scenario

	tok, err := dec.Token()
	if err != nil {
		return sc, formatErrorf(-1, "", "invalid JSON: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return sc, formatErrorf(-1, "", "expected an object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return sc, formatErrorf(-1, "", "invalid JSON: %v", err)
		}
		key, ok := tok.(string)
		if !ok {
			return sc, formatErrorf(-1, "", "expected an object key, got %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return sc, formatErrorf(-1, key, "invalid JSON: %v", err)
		}
		value, ok := tok.(string)
		if !ok {
			return sc, formatErrorf(-1, key, "value must be a string, got %s", describeToken(tok))
		}
		sc.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return sc, formatErrorf(-1, "", "invalid JSON: %v", err)
	}
	return sc, nil
}

func describeToken(tok json.Token) string {
	switch v := tok.(type) {
	case json.Delim:
		if v == '{' {
			return "object"
		}
		return "array"
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", tok)
	}
}

// ParseYAML decodes a YAML sequence of string maps.
// Values must be YAML strings; quote numbers such as "42".
func ParseYAML(data []byte) ([]Scenario, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, formatErrorf(-1, "", "invalid YAML: %v", err)
	}

	scenarios := []Scenario{}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return scenarios, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, formatErrorf(-1, "", "expected a YAML sequence of scenarios (line %d)", root.Line)
	}

	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, formatErrorf(i, "", "expected a mapping (line %d)", item.Line)
		}
		var sc Scenario
		for j := 0; j+1 < len(item.Content); j += 2 {
			keyNode, valueNode := item.Content[j], item.Content[j+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, formatErrorf(i, "", "expected a scalar key (line %d)", keyNode.Line)
			}
			if valueNode.Kind != yaml.ScalarNode || valueNode.ShortTag() != "!!str" {
				return nil, formatErrorf(i, keyNode.Value, "value must be a string, got %s (line %d)", yamlKind(valueNode), valueNode.Line)
			}
			sc.Set(keyNode.Value, valueNode.Value)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func yamlKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.AliasNode:
		return "alias"
	default:
		return n.ShortTag()
	}
}

// ParseCUE decodes scenarios from CUE source. The file may evaluate to a
// list of structs, or to a struct with a "scenarios" list field.
func ParseCUE(data []byte, name string) ([]Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return nil, formatErrorf(-1, "", "invalid CUE: %v", err)
	}

	if value.IncompleteKind() == cue.StructKind {
		value = value.LookupPath(cue.ParsePath("scenarios"))
		if !value.Exists() {
			return nil, formatErrorf(-1, "", "expected a list of scenarios or a \"scenarios\" field")
		}
	}

	list, err := value.List()
	if err != nil {
		return nil, formatErrorf(-1, "", "expected a list of scenarios: %v", err)
	}

	scenarios := []Scenario{}
	for i := 0; list.Next(); i++ {
		fields, err := list.Value().Fields()
		if err != nil {
			return nil, formatErrorf(i, "", "expected a struct: %v", err)
		}
		var sc Scenario
		for fields.Next() {
			key := fields.Selector().Unquoted()
			text, err := fields.Value().String()
			if err != nil {
				return nil, formatErrorf(i, key, "value must be a string: %v", err)
			}
			sc.Set(key, text)
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}
