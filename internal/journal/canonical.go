package journal

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/psqltmpl/internal/render"
	"github.com/roach88/psqltmpl/internal/scenario"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainScenario = "psqltmpl/scenario/v1"
	DomainTemplate = "psqltmpl/template/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ScenarioHash returns the content hash of a scenario's bindings.
// Key order does not affect the hash.
func ScenarioHash(sc scenario.Scenario) string {
	return hashWithDomain(DomainScenario, MarshalCanonical(sc))
}

// TemplateHash returns the content hash of the raw template bytes.
// Templates are not normalized: they are sent to the database verbatim.
func TemplateHash(tmpl render.Template) string {
	return hashWithDomain(DomainTemplate, []byte(tmpl))
}

// MarshalCanonical produces RFC 8785 canonical JSON for a scenario:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. U+2028 and U+2029 are written literally
func MarshalCanonical(sc scenario.Scenario) []byte {
	values := make(map[string]string, sc.Len())
	for _, b := range sc.Bindings() {
		values[norm.NFC.String(b.Name)] = b.Value
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessUTF16(keys[i], keys[j])
	})

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(marshalCanonicalString(k))
		buf.WriteByte(':')
		buf.Write(marshalCanonicalString(values[k]))
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// lessUTF16 orders strings by UTF-16 code units per RFC 8785.
func lessUTF16(a, b string) bool {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	for i := 0; i < len(ua) && i < len(ub); i++ {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return len(ua) < len(ub)
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization. Only control characters, backslash and quote are escaped.
func marshalCanonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))

	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return unescapeLineSeparators(out)
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes emitted by
// encoding/json back into literal characters. Escape pairs are consumed
// whole, so an escaped backslash followed by "u2028" is left untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) {
			switch string(data[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}
