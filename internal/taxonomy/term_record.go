package taxonomy

import (
	"sort"
	"strconv"

	"github.com/reedcms/reed/internal/codec"
	"github.com/reedcms/reed/internal/corerr"
)

// TermHeader is the fixed on-disk column order for terms.matrix.csv.
var TermHeader = []string{"term_id", "vocabulary", "properties", "usage_count", "description"}

const (
	propWeight  = "weight"
	propParent  = "parent"
	propEnabled = "enabled"
	propColor   = "color"
	propIcon    = "icon"
)

var knownTermProps = map[string]bool{
	propWeight: true, propParent: true, propEnabled: true, propColor: true, propIcon: true,
}

func termToMatrix(t Term) codec.MatrixRecord {
	items := []codec.ModifiedItem{
		{Name: propWeight, Mods: []string{strconv.Itoa(t.Weight)}},
		{Name: propParent, Mods: []string{t.Parent}},
		{Name: propEnabled, Mods: []string{boolString(t.Enabled)}},
	}
	if t.Color != "" {
		items = append(items, codec.ModifiedItem{Name: propColor, Mods: []string{t.Color}})
	}
	if t.Icon != "" {
		items = append(items, codec.ModifiedItem{Name: propIcon, Mods: []string{t.Icon}})
	}

	extraKeys := make([]string, 0, len(t.Extras))
	for k := range t.Extras {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		items = append(items, codec.ModifiedItem{Name: k, Mods: []string{t.Extras[k]}})
	}

	fields := map[string]codec.MatrixValue{
		"term_id":     codec.Single(t.TermID),
		"vocabulary":  codec.Single(t.Vocabulary),
		"properties":  codec.ModifiedListValue(items...),
		"usage_count": codec.Single(strconv.Itoa(t.UsageCount)),
	}
	return codec.MatrixRecord{
		Order:       TermHeader[:len(TermHeader)-1],
		Fields:      fields,
		Description: t.Description,
	}
}

func matrixToTerm(m codec.MatrixRecord) (Term, error) {
	var t Term
	t.Description = m.Description
	t.Extras = map[string]string{}

	if v, ok := m.Get("term_id"); ok {
		t.TermID = v.Single
	}
	if v, ok := m.Get("vocabulary"); ok {
		t.Vocabulary = v.Single
	}
	if v, ok := m.Get("usage_count"); ok && v.Single != "" {
		n, err := strconv.Atoi(v.Single)
		if err != nil {
			return Term{}, &corerr.ParseError{Input: v.Single, Reason: "malformed usage_count"}
		}
		t.UsageCount = n
	}

	props, _ := m.Get("properties")
	items := props.ModifiedList
	if props.Kind == codec.KindModified {
		items = []codec.ModifiedItem{{Name: props.ModifiedName, Mods: props.ModifiedMods}}
	}
	for _, item := range items {
		val := firstOrEmpty(item.Mods)
		switch item.Name {
		case propWeight:
			if val != "" {
				n, err := strconv.Atoi(val)
				if err != nil {
					return Term{}, &corerr.ParseError{Input: val, Reason: "malformed weight property"}
				}
				t.Weight = n
			}
		case propParent:
			t.Parent = val
		case propEnabled:
			t.Enabled = val == "true"
		case propColor:
			t.Color = val
		case propIcon:
			t.Icon = val
		default:
			if !knownTermProps[item.Name] {
				t.Extras[item.Name] = val
			}
		}
	}

	return t, nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
