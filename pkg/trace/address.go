package trace

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/bbflame/pkg/errors"
)

// Address is a code address as written in trace documents.
type Address uint64

// ParseAddress parses a hex address. The 0x prefix is optional.
func ParseAddress(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex == "" {
		return 0, errors.New(errors.ErrCodeInvalidAddress, "empty address")
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidAddress, err, "invalid address %q", s)
	}
	return v, nil
}

// FormatAddress renders an address the way documents and label files store it.
func FormatAddress(addr uint64) string {
	return fmt.Sprintf("0x%x", addr)
}

func (a Address) String() string { return FormatAddress(uint64(a)) }

func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseAddress(s)
		if err != nil {
			return err
		}
		*a = Address(v)
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidAddress, err, "invalid address %s", data)
	}
	*a = Address(v)
	return nil
}

func (a Address) MarshalYAML() (any, error) {
	return a.String(), nil
}

func (a *Address) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.New(errors.ErrCodeInvalidAddress, "line %d: address must be a scalar", value.Line)
	}
	if value.Tag == "!!str" {
		v, err := ParseAddress(value.Value)
		if err != nil {
			return err
		}
		*a = Address(v)
		return nil
	}
	// Plain YAML integers, which may themselves be written 0x....
	v, err := strconv.ParseUint(value.Value, 0, 64)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidAddress, err, "line %d: invalid address %q", value.Line, value.Value)
	}
	*a = Address(v)
	return nil
}
