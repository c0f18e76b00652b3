package sorter

import (
	"testing"

	"github.com/kbukum/gobexport/entity"
)

func decode(t *testing.T, raw string) *entity.Entity {
	t.Helper()
	e, err := entity.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return entity.Flatten(e)
}

func TestBox(t *testing.T) {
	e := decode(t, `{
		"id": "1",
		"a": [{"v": 1}, {"v": 2}],
		"b": [{"w": 1}, {"w": 2}, {"w": 3}],
		"c": [{"x": 1}]
	}`)

	tests := []struct {
		name      string
		relations []string
		want      int
	}{
		{"all multi-valued", nil, 6},
		{"one relation", []string{"b"}, 3},
		{"single-valued relation", []string{"c"}, 1},
		{"unknown relation", []string{"missing"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			boxes := Box(e, tc.relations...)
			if len(boxes) != tc.want {
				t.Fatalf("expected %d boxes, got %d", tc.want, len(boxes))
			}
			for _, b := range boxes {
				if b.Lookup("id") != "1" {
					t.Errorf("box lost scalar field: %s", b)
				}
				if keys := b.Keys(); len(keys) != 4 || keys[0] != "id" {
					t.Errorf("box changed field order: %v", keys)
				}
			}
		})
	}

	if got := Box(e, "a"); got[0].Lookup("a.v") == got[1].Lookup("a.v") {
		t.Error("expected one box per child")
	}
	if v, _ := e.Get("a"); len(v.([]*entity.Entity)) != 2 {
		t.Error("boxing must not modify the input")
	}
}

func TestSelect_Deterministic(t *testing.T) {
	inputs := []string{
		`{"buurt": [{"code": "A", "begin": "2010-01-01"}, {"code": "B", "begin": "2015-06-01"}]}`,
		`{"buurt": [{"code": "B", "begin": "2015-06-01"}, {"code": "A", "begin": "2010-01-01"}]}`,
	}
	for _, raw := range inputs {
		got := Select(decode(t, raw), Latest("buurt.begin"))
		if got.Lookup("buurt.code") != "B" {
			t.Errorf("expected latest child B for %s, got %v", raw, got.Lookup("buurt.code"))
		}
		got = Select(decode(t, raw), Earliest("buurt.begin"))
		if got.Lookup("buurt.code") != "A" {
			t.Errorf("expected earliest child A for %s, got %v", raw, got.Lookup("buurt.code"))
		}
	}
}

func TestSelect_BoxesEveryRelation(t *testing.T) {
	e := decode(t, `{
		"id": "1",
		"a": [{"v": "v1"}, {"v": "v2"}],
		"b": [{"w": "x"}, {"w": "y"}],
		"c": [{"z": "only"}]
	}`)

	got := Select(e, Latest("a.v"))
	if got.Lookup("a.v") != "v2" {
		t.Errorf("expected latest a.v v2, got %v", got.Lookup("a.v"))
	}
	if got.Lookup("b.w") != "x" {
		t.Errorf("expected first b combination to win the tie, got %v", got.Lookup("b.w"))
	}
	got.Range(func(k string, v any) bool {
		if children, ok := v.([]*entity.Entity); ok && len(children) != 1 {
			t.Errorf("relation %s of the winner holds %d children", k, len(children))
		}
		return true
	})
	if v, _ := e.Get("b"); len(v.([]*entity.Entity)) != 2 {
		t.Error("selecting must not modify the input")
	}
}

func TestSelect_SortersAppliedInOrder(t *testing.T) {
	e := decode(t, `{"rel": [
		{"id": "1", "status": "historic", "begin": "2020-01-01"},
		{"id": "2", "status": "current", "begin": "2012-01-01"},
		{"id": "3", "status": "current", "begin": "2018-01-01"},
		{"id": "4", "begin": "2019-01-01"}
	]}`)

	got := Select(e, Prefer("rel.status", "current", "historic"), Latest("rel.begin"))
	if got.Lookup("rel.id") != "3" {
		t.Errorf("expected 3, got %v", got.Lookup("rel.id"))
	}
	got = Select(e, Latest("rel.begin"), Prefer("rel.status", "current"))
	if got.Lookup("rel.id") != "1" {
		t.Errorf("expected 1, got %v", got.Lookup("rel.id"))
	}
}

func TestSelect_TiesKeepFirst(t *testing.T) {
	e := decode(t, `{"rel": [{"id": "1", "v": ""}, {"id": "2", "v": "x"}, {"id": "3", "v": "y"}]}`)
	got := Select(e, NonEmpty("rel.v"))
	if got.Lookup("rel.id") != "2" {
		t.Errorf("expected first non-empty candidate, got %v", got.Lookup("rel.id"))
	}
}

func TestSelect_NoopWithoutMultiValuedRelations(t *testing.T) {
	e := decode(t, `{"id": "1", "rel": [{"v": "a"}]}`)
	if got := Select(e, Latest("rel.v")); got != e {
		t.Error("expected the input entity back")
	}
	if got := Select(e); got != e {
		t.Error("expected the input entity back without sorters")
	}
}

func TestRowFormatter(t *testing.T) {
	format := RowFormatter(Latest("rel.v"))
	got, err := format(decode(t, `{"rel": [{"v": "a"}, {"v": "c"}, {"v": "b"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Lookup("rel.v") != "c" {
		t.Errorf("expected c, got %v", got.Lookup("rel.v"))
	}
}
