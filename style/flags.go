package style

import (
	"fmt"
	"strings"
)

// Flags tell what a tag contributes to an object's classification.
type Flags uint16

const (
	// Skip ignores the tag.
	Skip Flags = 1 << iota
	// Main makes the tag a class (key) and type (value) of the object.
	Main
	// WithName restricts Main to objects that have a name.
	WithName
	// Fallback tags become main tags only when there are no others.
	Fallback
	Name
	Ref
	// Address tags go into the address column, stripped of "addr:".
	Address
	// House marks the object as an address point.
	House
	Postcode
	Country
	Interpolation
	// Extra tags go into the extratags column.
	Extra
)

var flagNames = map[string]Flags{
	"skip":          Skip,
	"main":          Main,
	"with_name":     WithName,
	"fallback":      Fallback,
	"name":          Name,
	"ref":           Ref,
	"address":       Address,
	"house":         House,
	"postcode":      Postcode,
	"country":       Country,
	"interpolation": Interpolation,
	"extra":         Extra,
}

// ParseFlags parses a comma separated list of flag names.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		flag, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown style flag %q", name)
		}
		f |= flag
	}
	if f == 0 {
		return 0, fmt.Errorf("no style flags in %q", s)
	}
	return f, nil
}

func (f Flags) Has(flag Flags) bool {
	return f&flag != 0
}
