// Package render substitutes scenario values into SQL templates.
//
// Substitution is literal: every occurrence of {name} is replaced with the
// scenario's value for name, with no escaping and no quoting. Placeholders
// the scenario does not bind are left in place.
//
// Rendering is a single left-to-right pass. Substituted values are never
// scanned again, so a value containing "{other}" stays as written. Where
// two tokens could match at the same position the longer key wins.
package render

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/roach88/psqltmpl/internal/scenario"
)

// Template is a SQL statement skeleton containing {name} placeholders.
type Template string

// LoadTemplate reads a template file verbatim.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}
	return Template(data), nil
}

// Token returns the placeholder token for name.
func Token(name string) string {
	return "{" + name + "}"
}

// Render returns tmpl with every bound placeholder replaced.
func Render(tmpl Template, sc scenario.Scenario) string {
	if sc.Len() == 0 {
		return string(tmpl)
	}
	return newReplacer(sc).Replace(string(tmpl))
}

// newReplacer builds a single-pass replacer with the longest tokens first.
// strings.Replacer prefers earlier pairs when several match at one position.
func newReplacer(sc scenario.Scenario) *strings.Replacer {
	bindings := sc.Bindings()
	sort.SliceStable(bindings, func(i, j int) bool {
		return len(bindings[i].Name) > len(bindings[j].Name)
	})

	pairs := make([]string, 0, 2*len(bindings))
	for _, b := range bindings {
		pairs = append(pairs, Token(b.Name), b.Value)
	}
	return strings.NewReplacer(pairs...)
}

// Placeholders returns the distinct placeholder names in tmpl, in order of
// first appearance. A name is any non-empty run of characters other than
// braces between "{" and "}".
func Placeholders(tmpl Template) []string {
	var names []string
	seen := make(map[string]bool)

	s := string(tmpl)
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			break
		}
		rest := s[open+1:]
		end := strings.IndexAny(rest, "{}")
		if end < 0 {
			break
		}
		if rest[end] == '{' {
			// Unbalanced brace: restart at the inner one.
			s = rest[end:]
			continue
		}
		name := rest[:end]
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		s = rest[end+1:]
	}
	return names
}

// Unmatched returns the placeholders in tmpl that sc does not bind.
func Unmatched(tmpl Template, sc scenario.Scenario) []string {
	var missing []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := sc.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
