// Package style decides from its tags whether an object ends up in the place
// table and with which classes, names and address parts.
package style

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/osmflex/mapslicehelp"
)

//go:embed default.json
var defaultStyle []byte

// Rule assigns flags to tags by key pattern and value. Keys are exact, a
// prefix ending in "*" or a suffix starting with "*". The value "" holds the
// flags for any value not listed.
type Rule struct {
	Keys   []string          `validate:"required,min=1,dive,required" json:"keys"`
	Values map[string]string `validate:"required,min=1" default:"{\"\":\"skip\"}" json:"values"`

	flags map[string]Flags
}

func (r *Rule) UnmarshalJSON(data []byte) error {
	unknown, err := marshmallow.Unmarshal(data, r, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown style rule field(s) %s", strings.Join(mapslicehelp.SortedKeys(unknown), ", "))
	}
	// defaults only fill what the rule left out
	if err = defaults.Set(r); err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(r); err != nil {
		return err
	}

	r.flags = make(map[string]Flags, len(r.Values))
	for value, spec := range r.Values {
		if r.flags[value], err = ParseFlags(spec); err != nil {
			return fmt.Errorf("keys %v value %q: %w", r.Keys, value, err)
		}
	}
	return nil
}

func (r *Rule) matchesKey(key string) bool {
	for _, pattern := range r.Keys {
		switch {
		case pattern == "*":
			return true
		case strings.HasSuffix(pattern, "*"):
			if strings.HasPrefix(key, pattern[:len(pattern)-1]) {
				return true
			}
		case strings.HasPrefix(pattern, "*"):
			if strings.HasSuffix(key, pattern[1:]) {
				return true
			}
		case pattern == key:
			return true
		}
	}
	return false
}

func (r *Rule) lookup(value string) (Flags, bool) {
	if f, ok := r.flags[value]; ok {
		return f, true
	}
	f, ok := r.flags[""]
	return f, ok
}

// Style is an ordered set of rules. The first rule matching a tag decides.
type Style struct {
	rules []Rule
}

// Load reads a style from a JSON array of rules.
func Load(r io.Reader) (*Style, error) {
	var rules []Rule
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("reading style: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("style has no rules")
	}
	return &Style{rules: rules}, nil
}

func LoadFile(path string) (*Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Default returns the built in style.
func Default() (*Style, error) {
	return Load(strings.NewReader(string(defaultStyle)))
}

// Flags returns the flags for a tag, zero when no rule covers it.
func (s *Style) Flags(key, value string) Flags {
	for i := range s.rules {
		if !s.rules[i].matchesKey(key) {
			continue
		}
		if f, ok := s.rules[i].lookup(value); ok {
			return f
		}
	}
	return 0
}
