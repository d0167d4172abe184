package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"tweetbot/internal/errs"
)

// Sequence is the ordered list of message texts. Treat it as read-only.
type Sequence []string

func (s Sequence) Len() int { return len(s) }

// At returns the message at i wrapped modulo Len. It panics on an empty sequence.
func (s Sequence) At(i int) string {
	n := len(s)
	return s[((i%n)+n)%n]
}

// Equal reports whether two sequences hold the same messages in the same order.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Load reads the list at path.
//
// JSON files must hold an array of strings; .yaml/.yml files a sequence of
// strings. A missing, unreadable, malformed or empty file yields a
// *errs.ConfigurationError.
func Load(path string) (Sequence, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Config(path, err)
	}
	seq, err := Parse(path, b)
	if err != nil {
		return nil, errs.Config(path, err)
	}
	return seq, nil
}

// Parse decodes data as the format implied by path's extension.
func Parse(path string, data []byte) (Sequence, error) {
	var (
		items []string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		items, err = parseYAML(data)
	default:
		items, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.ErrEmptyContent
	}
	for i, it := range items {
		if strings.TrimSpace(it) == "" {
			return nil, fmt.Errorf("item %d is blank", i)
		}
	}
	return Sequence(items), nil
}

func parseJSON(data []byte) ([]string, error) {
	var raw []*string
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errs.ErrEmptyContent
		}
		return nil, fmt.Errorf("json: expected an array of strings: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("json: trailing data after array")
	}
	if raw == nil {
		// literal null
		return nil, errs.ErrEmptyContent
	}
	items := make([]string, len(raw))
	for i, p := range raw {
		if p == nil {
			return nil, fmt.Errorf("json: item %d is null", i)
		}
		items[i] = *p
	}
	return items, nil
}

func parseYAML(data []byte) ([]string, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return nil, errs.ErrEmptyContent
	}
	root := node.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("yaml: expected a sequence of strings at line %d", root.Line)
	}
	items := make([]string, 0, len(root.Content))
	for _, n := range root.Content {
		// Plain scalars such as 2024 or yes are kept verbatim.
		if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
			return nil, fmt.Errorf("yaml: item at line %d is not a string", n.Line)
		}
		items = append(items, n.Value)
	}
	return items, nil
}

// Preview returns s cut to maxRunes runes with "..." appended when cut.
func Preview(s string, maxRunes int) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + "..."
}
