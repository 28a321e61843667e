package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Binding is a single placeholder name and its substitution value.
type Binding struct {
	Name  string
	Value string
}

// Scenario is an ordered set of placeholder bindings.
// The order is the order the keys appeared in the source file.
type Scenario struct {
	bindings []Binding
}

// FromPairs builds a scenario from alternating names and values.
// Panics on an odd number of arguments.
//
// Example:
//
//	sc := scenario.FromPairs("id", "1", "table", "orders")
func FromPairs(kv ...string) Scenario {
	if len(kv)%2 != 0 {
		panic("scenario.FromPairs: odd number of arguments")
	}
	var sc Scenario
	for i := 0; i < len(kv); i += 2 {
		sc.Set(kv[i], kv[i+1])
	}
	return sc
}

// Set binds name to value. A name that is already bound keeps its
// position and takes the new value.
func (s *Scenario) Set(name, value string) {
	for i := range s.bindings {
		if s.bindings[i].Name == name {
			s.bindings[i].Value = value
			return
		}
	}
	s.bindings = append(s.bindings, Binding{Name: name, Value: value})
}

// Get returns the value bound to name.
func (s Scenario) Get(name string) (string, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b.Value, true
		}
	}
	return "", false
}

// Len returns the number of bindings.
func (s Scenario) Len() int {
	return len(s.bindings)
}

// Keys returns binding names in source order.
func (s Scenario) Keys() []string {
	keys := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		keys[i] = b.Name
	}
	return keys
}

// Bindings returns a copy of the bindings in source order.
func (s Scenario) Bindings() []Binding {
	out := make([]Binding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// Map returns the bindings as a map. Order is lost.
func (s Scenario) Map() map[string]string {
	m := make(map[string]string, len(s.bindings))
	for _, b := range s.bindings {
		m[b.Name] = b.Value
	}
	return m
}

// MarshalJSON encodes the scenario as a JSON object, keeping key order.
func (s Scenario) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range s.bindings {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, b.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, b.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of string values, keeping key order.
func (s *Scenario) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	sc, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*s = sc
	return nil
}

// String renders the scenario as a compact JSON object in source order.
func (s Scenario) String() string {
	data, err := s.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", s.bindings)
	}
	return string(data)
}

func writeJSONString(buf *bytes.Buffer, v string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
