// Package scenario reads ordered lists of placeholder bindings.
//
// A scenario is one set of values applied to a SQL template. Scenarios keep
// both the order of the list and the order of keys within each scenario, so
// execution and failure reports follow the source file exactly.
//
// Scenario files may be JSON, YAML or CUE:
//
//	[{"id": "1"}, {"id": "2"}]
//
//	- id: "1"
//	- id: "2"
//
//	scenarios: [{id: "1"}, {id: "2"}]
//
// All values must be strings.
package scenario
