package format

import (
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
)

func decode(t *testing.T, raw string) *entity.Entity {
	t.Helper()
	e, err := entity.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return entity.Flatten(e)
}

const meetboutFormat = `
identificatie: identificatie
bron:
  action: literal
  value: GOB
buurt: ligtInBuurt.[0].code
begin:
  action: format
  value: beginGeldigheid
  formatter: date
  args: ["02-01-2006"]
status:
  condition: isempty
  reference: eindGeldigheid
  trueval:
    action: literal
    value: actueel
  falseval:
    condition: isempty
    reference: reden
    negate: true
    trueval: reden
    falseval:
      action: literal
      value: historisch
`

func TestParse_ResolvesRows(t *testing.T) {
	spec, err := Parse([]byte(meetboutFormat), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(spec.Fieldnames(), ","); got != "identificatie,bron,buurt,begin,status" {
		t.Fatalf("unexpected fieldnames %s", got)
	}

	tests := []struct {
		raw  string
		want string
	}{
		{
			`{"identificatie": "10381001", "beginGeldigheid": "2010-03-01", "eindGeldigheid": null,
			  "ligtInBuurt": {"edges": [{"node": {"code": "A00a"}}]}}`,
			"10381001|GOB|A00a|01-03-2010|actueel",
		},
		{
			`{"identificatie": "2", "beginGeldigheid": "2010-03-01T10:00:00", "eindGeldigheid": "2012-01-01", "reden": "vervallen"}`,
			"2|GOB||01-03-2010|vervallen",
		},
		{
			`{"identificatie": "3", "eindGeldigheid": "2012-01-01", "reden": ""}`,
			"3|GOB|||historisch",
		},
	}
	for _, tc := range tests {
		row, err := spec.Row(decode(t, tc.raw))
		if err != nil {
			t.Fatal(err)
		}
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = entity.Text(v)
		}
		if got := strings.Join(parts, "|"); got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestSpec_Map(t *testing.T) {
	spec, err := NewSpec(nil,
		Column{Name: "b", Value: Ref("x")},
		Column{Name: "a", Value: Literal{Value: 1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	m, err := spec.Map(decode(t, `{"x": "value"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := m.String(); got != `{"b":"value","a":1}` {
		t.Errorf("unexpected mapping %s", got)
	}
}

func TestSpec_FieldnamesAreStable(t *testing.T) {
	spec, _ := NewSpec(nil, Column{Name: "a", Value: Ref("a")}, Column{Name: "b", Value: Ref("b")})
	names := spec.Fieldnames()
	names[0] = "changed"
	if spec.Fieldnames()[0] != "a" {
		t.Error("fieldnames must not be mutable by callers")
	}
}

func TestConstructionErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown action", "a: {action: fill, value: x}"},
		{"unknown condition", "a: {condition: isnull, reference: x}"},
		{"unknown nested condition", "a: {condition: isempty, reference: x, trueval: {condition: eq}}"},
		{"unknown formatter", "a: {action: format, value: x, formatter: reverse}"},
		{"formatter without value", "a: {action: format, formatter: upper}"},
		{"formatter arguments", "a: {action: format, value: x, formatter: upper, args: [y]}"},
		{"unknown key", "a: {action: literal, value: x, default: y}"},
		{"neither action nor condition", "a: {value: x}"},
		{"bad path", "a: x..y"},
		{"bad reference", "a: {condition: isempty, reference: '[x]'}"},
		{"number as path", "a: 12"},
		{"not a mapping", "- a\n- b"},
		{"empty", ""},
		{"invalid yaml", "a: [b"},
		{"duplicate column", "a: x\na: y"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml), nil)
			if !errors.IsCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestFormatterErrorIsConversionError(t *testing.T) {
	spec, err := Parse([]byte("d: {action: format, value: d, formatter: date}"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := spec.Row(decode(t, `{"d": "gisteren"}`)); !errors.IsCode(err, errors.ErrCodeConversion) {
		t.Errorf("expected conversion error, got %v", err)
	}

	geo, err := Parse([]byte("g: {action: format, value: geometrie, formatter: geometry_wkt}"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := geo.Row(decode(t, `{"geometrie": {"type": "Circle", "coordinates": [1, 2]}}`)); !errors.IsCode(err, errors.ErrCodeConversion) {
		t.Errorf("expected conversion error for unknown geometry, got %v", err)
	}
}

func TestRegistry_Custom(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("reverse", func(v any) (any, error) {
		s := []rune(entity.Text(v))
		for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
			s[i], s[j] = s[j], s[i]
		}
		return string(s), nil
	})
	spec, err := Parse([]byte("r: {action: format, value: v, formatter: reverse}"), reg)
	if err != nil {
		t.Fatal(err)
	}
	row, _ := spec.Row(decode(t, `{"v": "abc"}`))
	if row[0] != "cba" {
		t.Errorf("expected cba, got %v", row[0])
	}
	if _, err := Parse([]byte("r: {action: format, value: v, formatter: reverse}"), nil); err == nil {
		t.Error("custom formatter must not leak into the default registry")
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		formatter string
		args      []string
		in        string
		want      any
	}{
		{"upper", nil, `"abc"`, "ABC"},
		{"lower", nil, `"ABC"`, "abc"},
		{"trim", nil, `"  a b "`, "a b"},
		{"upper", nil, `null`, nil},
		{"date", nil, `"2010-01-02T03:04:05.123"`, "2010-01-02"},
		{"date", nil, `""`, nil},
		{"datetime", nil, `"2010-01-02"`, "2010-01-02T00:00:00"},
		{"datetime", []string{"02-01-2006 15:04"}, `"2010-01-02T03:04:05"`, "02-01-2010 03:04"},
		{"boolean_jn", nil, `true`, "J"},
		{"boolean_jn", nil, `false`, "N"},
		{"boolean_jn", nil, `"false"`, "N"},
		{"boolean_jn", nil, `null`, nil},
		{"join", nil, `["a", "b", 3]`, "a|b|3"},
		{"join", []string{", "}, `["a", "b"]`, "a, b"},
		{"join", nil, `"single"`, "single"},
		{"geometry_wkt", nil, `{"type": "Point", "coordinates": [121394.0, 487143.5]}`, "POINT(121394 487143.5)"},
		{"geometry_wkt", nil, `{"type": "LineString", "coordinates": [[1, 2], [3, 4]]}`, "LINESTRING(1 2,3 4)"},
		{"geometry_wkt", nil, `{"type": "Polygon", "coordinates": [[[0, 0], [1, 0], [1, 1], [0, 0]]]}`, "POLYGON((0 0,1 0,1 1,0 0))"},
		{"geometry_wkt", nil, `{"type": "MultiPolygon", "coordinates": [[[[0, 0], [1, 1], [0, 0]]], [[[5, 5], [6, 6], [5, 5]]]]}`, "MULTIPOLYGON(((0 0,1 1,0 0)),((5 5,6 6,5 5)))"},
		{"geometry_wkt", nil, `{"type": "GeometryCollection", "geometries": [{"type": "Point", "coordinates": [1, 2]}]}`, "GEOMETRYCOLLECTION(POINT(1 2))"},
		{"geometry_wkt", nil, `"POINT (1 2)"`, "POINT (1 2)"},
		{"geometry_wkt", nil, `"{\"type\": \"Point\", \"coordinates\": [1, 2]}"`, "POINT(1 2)"},
	}
	reg := NewRegistry()
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s(%s)", tc.formatter, tc.in), func(t *testing.T) {
			fn, err := reg.Lookup(tc.formatter, tc.args...)
			if err != nil {
				t.Fatal(err)
			}
			in := decode(t, `{"v": `+tc.in+`}`).Lookup("v")
			got, err := fn(in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestBuiltins_Errors(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		formatter string
		in        string
	}{
		{"date", `12`},
		{"boolean_jn", `"maybe"`},
		{"geometry_wkt", `{"type": "Circle"}`},
		{"geometry_wkt", `{"type": "Point"}`},
		{"geometry_wkt", `{"type": "Point", "coordinates": ["a", "b"]}`},
	}
	for _, tc := range tests {
		fn, _ := reg.Lookup(tc.formatter)
		if _, err := fn(decode(t, `{"v": `+tc.in+`}`).Lookup("v")); err == nil {
			t.Errorf("%s(%s): expected error", tc.formatter, tc.in)
		}
	}
	if _, err := reg.Lookup("join", "a", "b"); err == nil {
		t.Error("expected error for too many arguments")
	}
}

func TestRegistry_Names(t *testing.T) {
	want := "boolean_jn,date,datetime,geometry_wkt,join,lower,trim,upper"
	if got := strings.Join(NewRegistry().Names(), ","); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
