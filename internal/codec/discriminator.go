package codec

import "strings"

// ParseValue applies the matrix-value kind discriminator of spec.md §4.1
// to a single cell's raw text.
func ParseValue(cell string) MatrixValue {
	hasComma := strings.ContainsRune(cell, ',')
	hasOpen := strings.ContainsRune(cell, '[')
	hasClose := strings.ContainsRune(cell, ']')

	switch {
	case hasComma && hasOpen:
		parts := splitTopLevel(cell, ',')
		items := make([]ModifiedItem, 0, len(parts))
		for _, p := range parts {
			name, mods := splitNameMods(p)
			items = append(items, ModifiedItem{Name: name, Mods: mods})
		}
		return MatrixValue{Kind: KindModifiedList, ModifiedList: items}

	case hasOpen && hasClose:
		name, mods := splitNameMods(cell)
		return MatrixValue{Kind: KindModified, ModifiedName: name, ModifiedMods: mods}

	case hasComma:
		parts := strings.Split(cell, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return MatrixValue{Kind: KindList, List: parts}

	default:
		return MatrixValue{Kind: KindSingle, Single: cell}
	}
}

// EmitValue is the inverse of ParseValue: ParseValue(EmitValue(v)) == v for
// every v produced by ParseValue (spec.md §8 property 1, "codec
// round-trip"). Values whose Single/List elements themselves contain `,`
// or `[`/`]` are outside the format's addressable domain, exactly as the
// discriminator in spec.md §4.1 defines it.
func EmitValue(v MatrixValue) string {
	switch v.Kind {
	case KindSingle:
		return v.Single
	case KindList:
		return strings.Join(v.List, ",")
	case KindModified:
		return v.ModifiedName + "[" + strings.Join(v.ModifiedMods, ",") + "]"
	case KindModifiedList:
		items := make([]string, len(v.ModifiedList))
		for i, item := range v.ModifiedList {
			items[i] = item.Name + "[" + strings.Join(item.Mods, ",") + "]"
		}
		return strings.Join(items, ",")
	default:
		return ""
	}
}

// splitTopLevel splits s on sep, ignoring occurrences of sep that fall
// inside a [...] span, as required for ModifiedList elements whose
// modifiers may themselves contain commas (e.g. "main.css[prod,staging]").
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		default:
			if s[i] == sep && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// splitNameMods parses "name[mods]" into name and the comma-separated
// modifier list. The modifier substring is the text between the first '['
// and the last ']' (spec.md §4.1, "Bracket parsing"); an empty modifier
// substring yields an empty, non-nil modifier slice.
func splitNameMods(s string) (name string, mods []string) {
	first := strings.IndexByte(s, '[')
	last := strings.LastIndexByte(s, ']')
	if first < 0 || last < 0 || last < first {
		return s, nil
	}

	name = s[:first]
	inner := s[first+1 : last]
	if inner == "" {
		return name, []string{}
	}

	raw := strings.Split(inner, ",")
	mods = make([]string, len(raw))
	for i, m := range raw {
		mods[i] = strings.TrimSpace(m)
	}
	return name, mods
}
