// Package codec implements the universal delimited-file format shared by
// every .reed/*.csv file: pipe-delimited rows, `#`-comment and blank-line
// skipping, a header row, and two record shapes (scalar triples and
// matrix rows whose cells are one of four MatrixValue kinds). See
// spec.md §4.1 and §6.
package codec

import "fmt"

// Kind discriminates the four shapes a matrix cell's text can take.
type Kind int

const (
	KindSingle Kind = iota
	KindList
	KindModified
	KindModifiedList
)

func (k Kind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	case KindModified:
		return "modified"
	case KindModifiedList:
		return "modified_list"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ModifiedItem is one `name[mods]` element of a ModifiedList value.
type ModifiedItem struct {
	Name string
	Mods []string
}

// MatrixValue is the tagged union described in spec.md §3: a cell holds
// exactly one of Single, List, Modified or ModifiedList shape, selected by
// Kind. Only the fields matching Kind are meaningful.
type MatrixValue struct {
	Kind Kind

	Single string

	List []string

	ModifiedName string
	ModifiedMods []string

	ModifiedList []ModifiedItem
}

// Equal reports whether two MatrixValues are the same value (used by the
// codec round-trip property test, spec.md §8 property 1).
func (v MatrixValue) Equal(o MatrixValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindSingle:
		return v.Single == o.Single
	case KindList:
		return stringSliceEqual(v.List, o.List)
	case KindModified:
		return v.ModifiedName == o.ModifiedName && stringSliceEqual(v.ModifiedMods, o.ModifiedMods)
	case KindModifiedList:
		if len(v.ModifiedList) != len(o.ModifiedList) {
			return false
		}
		for i := range v.ModifiedList {
			a, b := v.ModifiedList[i], o.ModifiedList[i]
			if a.Name != b.Name || !stringSliceEqual(a.Mods, b.Mods) {
				return false
			}
		}
		return true
	}
	return false
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Single constructs a single-string MatrixValue.
func Single(s string) MatrixValue { return MatrixValue{Kind: KindSingle, Single: s} }

// List constructs a list MatrixValue.
func List(items ...string) MatrixValue { return MatrixValue{Kind: KindList, List: items} }

// Modified constructs a name[mods] MatrixValue.
func Modified(name string, mods ...string) MatrixValue {
	return MatrixValue{Kind: KindModified, ModifiedName: name, ModifiedMods: mods}
}

// ModifiedListValue constructs a ModifiedList MatrixValue.
func ModifiedListValue(items ...ModifiedItem) MatrixValue {
	return MatrixValue{Kind: KindModifiedList, ModifiedList: items}
}

// ScalarRecord is the (key, value, description) triple of spec.md §3.
type ScalarRecord struct {
	Key         string
	Value       string
	Description string
}

// MatrixRecord is a field-ordered mapping plus an optional description
// (spec.md §3). Order preserves the on-disk column order so re-emission
// is stable.
type MatrixRecord struct {
	Order       []string
	Fields      map[string]MatrixValue
	Description string
}

// Get returns the value for field name and whether it was present.
func (m MatrixRecord) Get(name string) (MatrixValue, bool) {
	v, ok := m.Fields[name]
	return v, ok
}
