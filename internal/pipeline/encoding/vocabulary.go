// Package encoding maps line and station labels to the integer codes learned at training time.
package encoding

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Vocabulary is an ordered, immutable class list. A label's code is its index.
type Vocabulary struct {
	field   string
	classes []string
	index   map[string]int
}

// NewVocabulary creates a Vocabulary for field. Classes are trimmed; duplicates and blanks are rejected.
func NewVocabulary(field string, classes []string) (*Vocabulary, error) {
	v := &Vocabulary{field: field, classes: make([]string, len(classes)), index: make(map[string]int, len(classes))}
	for i, c := range classes {
		label := strings.TrimSpace(c)
		if label == "" {
			return nil, fmt.Errorf("%s vocabulary: blank class at index %d", field, i)
		}
		if prev, dup := v.index[label]; dup {
			return nil, fmt.Errorf("%s vocabulary: class %q at index %d duplicates index %d", field, label, i, prev)
		}
		v.classes[i] = label
		v.index[label] = i
	}
	if len(v.classes) == 0 {
		return nil, fmt.Errorf("%s vocabulary is empty", field)
	}
	return v, nil
}

// vocabularyDocument is the artifact layout: a mapping with a classes list, or a bare list.
type vocabularyDocument struct {
	Field   string   `yaml:"field"`
	Classes []string `yaml:"classes"`
}

// LoadVocabulary parses a YAML (or JSON) encoder artifact.
func LoadVocabulary(field string, r io.Reader) (*Vocabulary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%s vocabulary: %w", field, err)
	}
	var classes []string
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&classes); err != nil {
			return nil, fmt.Errorf("%s vocabulary: %w", field, err)
		}
	} else {
		var doc vocabularyDocument
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s vocabulary: %w", field, err)
		}
		classes = doc.Classes
	}
	return NewVocabulary(field, classes)
}

// Field returns the encoded field name.
func (v *Vocabulary) Field() string { return v.field }

// Len returns the number of classes.
func (v *Vocabulary) Len() int { return len(v.classes) }

// Code returns the code of a label after trimming it.
func (v *Vocabulary) Code(label string) (int, bool) {
	c, ok := v.index[strings.TrimSpace(label)]
	return c, ok
}

// Class returns the label of a code.
func (v *Vocabulary) Class(code int) (string, bool) {
	if code < 0 || code >= len(v.classes) {
		return "", false
	}
	return v.classes[code], true
}
