package codec

import "testing"

func TestParseValue_Kinds(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want MatrixValue
	}{
		{"single", "active", Single("active")},
		{"list", "admin,editor,viewer", List("admin", "editor", "viewer")},
		{"modified", "main.css[prod]", Modified("main.css", "prod")},
		{
			"modified_list",
			"text[rwx],route[rw-],content[r--]",
			ModifiedListValue(
				ModifiedItem{Name: "text", Mods: []string{"rwx"}},
				ModifiedItem{Name: "route", Mods: []string{"rw-"}},
				ModifiedItem{Name: "content", Mods: []string{"r--"}},
			),
		},
		{"empty_mods", "main.css[]", Modified("main.css")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseValue(tc.in)
			if !got.Equal(tc.want) {
				t.Errorf("ParseValue(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRoundTrip_MatrixValue(t *testing.T) {
	values := []MatrixValue{
		Single("active"),
		Single(""),
		List("admin", "editor", "viewer"),
		Modified("main.css", "prod"),
		Modified("main.css"),
		ModifiedListValue(
			ModifiedItem{Name: "text", Mods: []string{"rwx"}},
			ModifiedItem{Name: "route", Mods: []string{"rw-"}},
		),
		ModifiedListValue(
			ModifiedItem{Name: "weight", Mods: []string{"10"}},
			ModifiedItem{Name: "parent", Mods: []string{}},
		),
	}

	for _, v := range values {
		emitted := EmitValue(v)
		reparsed := ParseValue(emitted)
		if !reparsed.Equal(v) {
			t.Errorf("round-trip failed: %+v -> %q -> %+v", v, emitted, reparsed)
		}
	}
}

func TestSplitNameMods_EmptyModifiers(t *testing.T) {
	name, mods := splitNameMods("tech[]")
	if name != "tech" {
		t.Errorf("expected name 'tech', got %q", name)
	}
	if len(mods) != 0 {
		t.Errorf("expected empty modifier slice, got %v", mods)
	}
}

func TestSplitTopLevel_IgnoresCommasInsideBrackets(t *testing.T) {
	parts := splitTopLevel("main.css[prod,staging],other[x]", ',')
	want := []string{"main.css[prod,staging]", "other[x]"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %d: %v", len(want), len(parts), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: got %q, want %q", i, parts[i], want[i])
		}
	}
}
