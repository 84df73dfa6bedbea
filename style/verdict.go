package style

import (
	"strconv"
	"strings"

	"github.com/pdok/osmflex/mapslicehelp"
	"github.com/pdok/osmflex/osm"
)

// DefaultAdminLevel is used when an object has no valid admin_level tag.
const DefaultAdminLevel = 15

// MainTag is one class/type pair an object is stored under.
type MainTag struct {
	Class string
	Type  string
}

// Verdict is the classification of a single object. Evaluate returns a new
// one for every object.
type Verdict struct {
	Main       []MainTag
	Names      map[string]string
	Address    map[string]string
	Extra      map[string]string
	AdminLevel int
}

// Row receives the column values of one place row, in table order.
type Row interface {
	AddInt(v int64)
	AddText(v string)
	AddHstore(m map[string]string)
	AddGeom(wkb []byte)
	Finish() error
}

// Evaluate classifies an object by its tags.
func (s *Style) Evaluate(tags osm.Tags) *Verdict {
	v := &Verdict{
		Names:      map[string]string{},
		Address:    map[string]string{},
		Extra:      map[string]string{},
		AdminLevel: DefaultAdminLevel,
	}

	var named, house, postcode, interpolation bool
	var fallback, withName []MainTag
	for _, key := range mapslicehelp.SortedKeys(tags) {
		value := tags[key]
		if key == "admin_level" {
			v.AdminLevel = parseAdminLevel(value)
		}
		flags := s.Flags(key, value)
		if flags == 0 || flags.Has(Skip) {
			continue
		}

		tag := MainTag{Class: key, Type: value}
		switch {
		case flags.Has(Main) && flags.Has(WithName):
			withName = append(withName, tag)
		case flags.Has(Main):
			v.Main = append(v.Main, tag)
		case flags.Has(Fallback):
			fallback = append(fallback, tag)
		}
		if flags.Has(Name) {
			v.Names[key] = value
			named = true
		}
		if flags.Has(Ref) {
			v.Names[key] = value
		}
		if flags.Has(Address) || flags.Has(House) {
			v.Address[strings.TrimPrefix(key, "addr:")] = value
		}
		if flags.Has(House) {
			house = true
		}
		if flags.Has(Postcode) {
			v.Address["postcode"] = value
			postcode = true
		}
		if flags.Has(Country) {
			v.Address["country"] = value
		}
		if flags.Has(Interpolation) {
			v.Address["interpolation"] = value
			interpolation = true
		}
		if flags.Has(Extra) {
			v.Extra[key] = value
		}
	}

	if named {
		v.Main = append(v.Main, withName...)
	}
	if len(v.Main) == 0 {
		v.Main = fallback
	}
	if len(v.Main) == 0 {
		switch {
		case interpolation:
			v.Main = []MainTag{{Class: "place", Type: "houses"}}
		case house:
			v.Main = []MainTag{{Class: "place", Type: "house"}}
		case postcode:
			v.Main = []MainTag{{Class: "place", Type: "postcode"}}
		}
	}
	return v
}

func parseAdminLevel(s string) int {
	level, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || level < 1 || level > DefaultAdminLevel {
		return DefaultAdminLevel
	}
	return level
}

// HasData reports whether the object produces any row.
func (v *Verdict) HasData() bool {
	return len(v.Main) > 0
}

// ClassList returns the distinct classes, in order of first appearance.
func (v *Verdict) ClassList() []string {
	classes := make([]string, 0, len(v.Main))
	for _, m := range v.Main {
		classes = mapslicehelp.AppendUnique(classes, m.Class)
	}
	return classes
}

// CopyOut writes one row per main tag: id, type character, class, type,
// names, admin level, address, extra tags, geometry.
func (v *Verdict) CopyOut(newRow func() Row, itemType osm.ItemType, id int64, geom []byte) error {
	for _, m := range v.Main {
		row := newRow()
		row.AddInt(id)
		row.AddText(osm.TypeToChar(itemType))
		row.AddText(m.Class)
		row.AddText(m.Type)
		row.AddHstore(v.Names)
		row.AddInt(int64(v.AdminLevel))
		row.AddHstore(v.Address)
		row.AddHstore(v.Extra)
		row.AddGeom(geom)
		if err := row.Finish(); err != nil {
			return err
		}
	}
	return nil
}
