package filter

import (
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

func TestNotEmpty(t *testing.T) {
	f := NotEmpty("code", "buurt.naam")
	tests := []struct {
		raw  string
		want bool
	}{
		{`{"code": "A", "buurt": [{"naam": "Centrum"}]}`, true},
		{`{"code": "", "buurt": [{"naam": "Centrum"}]}`, false},
		{`{"code": "A", "buurt": []}`, false},
		{`{"code": "A", "buurt": null}`, false},
		{`{"code": "A"}`, false},
		{`{"code": 0, "buurt": [{"naam": ["x"]}]}`, true},
		{`{"code": "A", "buurt": [{"naam": []}]}`, false},
	}
	for _, tc := range tests {
		if got := f.Filter(decode(t, tc.raw)); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}

func TestUnique_ResetRestoresSequence(t *testing.T) {
	f := Unique("id")
	a := decode(t, `{"id": "A"}`)
	b := decode(t, `{"id": "B"}`)

	for round := 0; round < 2; round++ {
		got := []bool{f.Filter(a), f.Filter(b), f.Filter(a)}
		if got[0] != true || got[1] != true || got[2] != false {
			t.Errorf("round %d: expected [true true false], got %v", round, got)
		}
		f.Reset()
	}
}

func TestUnique_ComparesResolvedValues(t *testing.T) {
	f := Unique("ref")
	inputs := []struct {
		raw  string
		want bool
	}{
		{`{"ref": [{"id": 1}]}`, true},
		{`{"ref": [{"id": 1}]}`, false},
		{`{"ref": [{"id": 2}]}`, true},
		{`{"ref": null}`, true},
		{`{}`, false},
		{`{"ref": "1"}`, true},
		{`{"ref": 1}`, true},
	}
	for _, tc := range inputs {
		if got := f.Filter(decode(t, tc.raw)); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.raw, tc.want, got)
		}
	}
}

func TestGroup(t *testing.T) {
	unique := Unique("id")
	g := Group(NotEmpty("code"), unique)

	if !g.Filter(decode(t, `{"id": "1", "code": "x"}`)) {
		t.Error("expected first entity to pass")
	}
	if g.Filter(decode(t, `{"id": "2", "code": ""}`)) {
		t.Error("expected empty code to fail")
	}
	if !g.Filter(decode(t, `{"id": "2", "code": "y"}`)) {
		t.Error("a rejected entity must not be recorded by later filters")
	}
	if g.Filter(decode(t, `{"id": "1", "code": "z"}`)) {
		t.Error("expected duplicate to fail")
	}

	g.Reset()
	if !unique.Filter(decode(t, `{"id": "1"}`)) {
		t.Error("expected reset to propagate to children")
	}
}

func TestFromConfig(t *testing.T) {
	f, err := FromConfig(
		Definition{Type: TypeNotEmpty, Fields: []string{"code"}},
		Definition{Type: TypeUnique, Field: "id"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*GroupFilter); !ok {
		t.Fatalf("expected a group for several definitions, got %T", f)
	}
	if !f.Filter(decode(t, `{"id": "1", "code": "x"}`)) || f.Filter(decode(t, `{"id": "1", "code": "x"}`)) {
		t.Error("expected notempty and unique semantics")
	}

	if f, err := FromConfig(); f != nil || err != nil {
		t.Errorf("expected no filter, got %v %v", f, err)
	}
}

func TestFromConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"unknown type", Definition{Type: "regex"}},
		{"notempty without fields", Definition{Type: TypeNotEmpty}},
		{"unique without field", Definition{Type: TypeUnique}},
		{"bad path", Definition{Type: TypeUnique, Field: "a..b"}},
		{"bad child", Definition{Type: TypeGroup, Filters: []Definition{{Type: "x"}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromConfig(tc.def); !errors.IsCode(err, errors.ErrCodeConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestFunc(t *testing.T) {
	if !Func(nil)(entity.New()) {
		t.Error("nil filter must pass everything")
	}
}
