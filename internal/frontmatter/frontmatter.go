// Package frontmatter extracts the optional leading YAML block from
// markdown documents. Extraction is pure; callers own file I/O.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Frontmatter holds the recognised keys of a document's YAML header.
// Raw preserves the full decoded mapping, including unrecognised keys,
// so callers can carry them into the metadata bag.
type Frontmatter struct {
	Title       string
	DocType     string
	Status      string
	Owner       string
	Reviewer    string
	Feature     string
	Epic        *int
	Story       string
	Priority    string
	RelatedDocs []string
	Tags        []string
	Raw         map[string]interface{}
}

// requiredKeys are the fields a "complete" header carries; the health
// report's frontmatter compliance rate counts documents that have all
// of them.
var requiredKeys = []string{"title", "doc_type", "status", "owner"}

// IsComplete reports whether every required key is present and non-empty.
func (f *Frontmatter) IsComplete() bool {
	if f == nil {
		return false
	}
	return f.Title != "" && f.DocType != "" && f.Status != "" && f.Owner != ""
}

// Extract splits content into its frontmatter and body. Documents
// without a leading "---" line have no frontmatter: (nil, content, nil).
// An opening delimiter without a closing one, or YAML that fails to
// decode as a mapping, is an error.
func Extract(content []byte) (*Frontmatter, []byte, error) {
	rest, ok := trimOpeningDelimiter(content)
	if !ok {
		return nil, content, nil
	}

	pos := closingDelimiterIndex(rest)
	if pos.block < 0 {
		return nil, nil, fmt.Errorf("frontmatter block is not closed")
	}
	block := rest[:pos.block]
	body := rest[pos.body:]

	var raw map[string]interface{}
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if raw == nil {
		raw = map[string]interface{}{}
	}

	fm := &Frontmatter{
		Title:       scalarString(raw["title"]),
		DocType:     scalarString(raw["doc_type"]),
		Status:      scalarString(raw["status"]),
		Owner:       scalarString(raw["owner"]),
		Reviewer:    scalarString(raw["reviewer"]),
		Feature:     scalarString(raw["feature"]),
		Epic:        scalarInt(raw["epic"]),
		Story:       scalarString(raw["story"]),
		Priority:    scalarString(raw["priority"]),
		RelatedDocs: stringSlice(raw["related_docs"]),
		Tags:        stringSlice(raw["tags"]),
		Raw:         raw,
	}
	return fm, body, nil
}

// trimOpeningDelimiter returns the content after the opening "---" line,
// or ok=false when the document does not start with one.
func trimOpeningDelimiter(content []byte) ([]byte, bool) {
	i := bytes.IndexByte(content, '\n')
	if i < 0 {
		return nil, false
	}
	if strings.TrimRight(string(content[:i]), "\r") != delimiter {
		return nil, false
	}
	return content[i+1:], true
}

type delimiterPos struct {
	block int // bytes of YAML before the closing line
	body  int // offset of the body after the closing line
}

// closingDelimiterIndex finds the next line that is exactly "---".
func closingDelimiterIndex(rest []byte) delimiterPos {
	offset := 0
	for offset <= len(rest) {
		lineEnd := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		next := len(rest) + 1
		if lineEnd >= 0 {
			line = rest[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = rest[offset:]
		}
		if strings.TrimRight(string(line), "\r") == delimiter {
			return delimiterPos{block: offset, body: min(next, len(rest))}
		}
		if lineEnd < 0 {
			break
		}
		offset = next
	}
	return delimiterPos{block: -1}
}

// scalarString coerces scalar YAML values to strings. Numbers are
// rendered rather than rejected: "story: 1.2" decodes as a float but
// callers want the string form.
func scalarString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func scalarInt(v interface{}) *int {
	switch n := v.(type) {
	case int:
		return &n
	case float64:
		i := int(n)
		return &i
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return &i
		}
	}
	return nil
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
