// Package labels loads and normalizes sticker label lists.
package labels

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"stickerforge/internal/domain"
)

// MaxLabels caps a single batch.
const MaxLabels = 120

// ErrInvalid marks a label list that cannot be used for a batch.
var ErrInvalid = errors.New("labels: invalid label list")

// PresetFile is the on-disk preset format. Either Labels or Sets is used; a
// file with Sets may name the set applied when none is requested.
type PresetFile struct {
	Default string              `yaml:"default"`
	Labels  []string            `yaml:"labels"`
	Sets    map[string][]string `yaml:"sets"`
}

// Parse splits editor text into labels, one per line, dropping blank lines.
func Parse(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return Normalize(strings.Split(text, "\n"))
}

// Normalize trims each label and drops empty ones. Order and duplicates are kept.
func Normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, label := range in {
		if label = strings.TrimSpace(label); label != "" {
			out = append(out, label)
		}
	}
	return out
}

// Validate rejects label lists a batch cannot run.
func Validate(labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("%w: at least one label is required", ErrInvalid)
	}
	if len(labels) > MaxLabels {
		return fmt.Errorf("%w: %d labels exceed the limit of %d", ErrInvalid, len(labels), MaxLabels)
	}
	return nil
}

// Decode parses a preset document and returns the requested set.
func Decode(data []byte, set string) ([]string, error) {
	var file PresetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("labels: decode preset: %w", err)
	}
	return file.Resolve(set)
}

// Resolve picks labels from the preset. An empty set name falls back to the
// file default, then to the flat list.
func (f PresetFile) Resolve(set string) ([]string, error) {
	set = strings.TrimSpace(set)
	if set == "" {
		set = strings.TrimSpace(f.Default)
	}
	var picked []string
	switch {
	case set != "":
		list, ok := f.Sets[set]
		if !ok {
			return nil, fmt.Errorf("labels: set %q not found (available: %s)", set, strings.Join(f.SetNames(), ", "))
		}
		picked = list
	case len(f.Labels) > 0:
		picked = f.Labels
	case len(f.Sets) == 1:
		for _, list := range f.Sets {
			picked = list
		}
	default:
		return nil, fmt.Errorf("labels: preset has no labels")
	}
	out := Normalize(picked)
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetNames lists the named sets in sorted order.
func (f PresetFile) SetNames() []string {
	names := make([]string, 0, len(f.Sets))
	for name := range f.Sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads a preset file. An empty path yields the default labels.
func Load(path, set string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultLabelsCopy(), nil
	}
	file, err := ReadPreset(path)
	if err != nil {
		return nil, err
	}
	return file.Resolve(set)
}

// ReadPreset parses the preset file at path without resolving a set.
func ReadPreset(path string) (PresetFile, error) {
	var file PresetFile
	data, err := os.ReadFile(path)
	if err != nil {
		return file, fmt.Errorf("labels: read preset: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("labels: decode preset: %w", err)
	}
	return file, nil
}
