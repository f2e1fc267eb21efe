package trace

import (
	"bytes"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bbflame/pkg/errors"
)

// Labels are user supplied routine names keyed by address.
// A nil *Labels knows no names.
type Labels struct {
	names map[uint64]string
}

type labelsFile struct {
	Labels map[string]string `toml:"labels"`
}

// NewLabels returns an empty label set.
func NewLabels() *Labels {
	return &Labels{names: make(map[uint64]string)}
}

// LoadLabels reads a TOML label file.
func LoadLabels(path string) (*Labels, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "label file %s not found", path)
	}
	if err != nil {
		return nil, err
	}
	return ParseLabels(data)
}

// ParseLabels decodes TOML label data.
func ParseLabels(data []byte) (*Labels, error) {
	var f labelsFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse labels")
	}

	l := NewLabels()
	for key, name := range f.Labels {
		addr, err := ParseAddress(key)
		if err != nil {
			return nil, err
		}
		l.Set(addr, name)
	}
	return l, nil
}

// NameFor returns the label of addr. Blank labels count as absent.
func (l *Labels) NameFor(addr uint64) (string, bool) {
	if l == nil {
		return "", false
	}
	name, ok := l.names[addr]
	return name, ok
}

// Set labels addr. An empty name removes the label.
func (l *Labels) Set(addr uint64, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		delete(l.names, addr)
		return
	}
	l.names[addr] = name
}

// Len returns the number of labels.
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.names)
}

// Addrs returns the labelled addresses in ascending order.
func (l *Labels) Addrs() []uint64 {
	if l == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(l.names))
}

// Marshal encodes the labels as TOML.
func (l *Labels) Marshal() ([]byte, error) {
	f := labelsFile{Labels: make(map[string]string, l.Len())}
	for _, addr := range l.Addrs() {
		f.Labels[FormatAddress(addr)] = l.names[addr]
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the labels to path, creating parent directories.
func (l *Labels) Save(path string) error {
	data, err := l.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
