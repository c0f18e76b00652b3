package history

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/kbukum/gobexport/entity"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/logger"
	"github.com/kbukum/gobexport/pipeline"
)

func decode(t *testing.T, raw string) *entity.Entity {
	t.Helper()
	e, err := entity.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return entity.Flatten(e)
}

func bounds(rows []*entity.Entity) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = entity.Text(r.Lookup(DefaultBegin)) + ".." + entity.Text(r.Lookup(DefaultEnd))
	}
	return strings.Join(parts, " ")
}

func TestExpand_SingleReference(t *testing.T) {
	e := decode(t, `{
		"beginGeldigheid": "2010-01-01",
		"eindGeldigheid": "",
		"reference": [{"beginGeldigheid": "2012-01-01", "eindGeldigheid": "", "code": "R1"}]
	}`)

	rows, err := New("reference").Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if got := bounds(rows); got != "2010-01-01..2012-01-01 2012-01-01.." {
		t.Errorf("unexpected slots %s", got)
	}
	if ref, _ := rows[0].Get("reference"); ref != nil {
		t.Errorf("expected no reference in the first slot, got %v", ref)
	}
	if code := rows[1].Lookup("reference.code"); code != "R1" {
		t.Errorf("expected reference R1 in the second slot, got %v", code)
	}
}

func TestExpand_SingleIntervalIsIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"open end", `{"id": "1", "beginGeldigheid": "2010-01-01", "eindGeldigheid": null}`, "2010-01-01.."},
		{"closed", `{"id": "1", "beginGeldigheid": "2010-01-01", "eindGeldigheid": "2011-02-03"}`, "2010-01-01..2011-02-03"},
		{"no validity", `{"id": "1"}`, ".."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := New().Expand(decode(t, tc.raw))
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != 1 {
				t.Fatalf("expected exactly one row, got %d", len(rows))
			}
			if got := bounds(rows); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
			if rows[0].Lookup("id") != "1" || rows[0].Keys()[0] != "id" {
				t.Errorf("expected visible fields unchanged, got %s", rows[0])
			}
		})
	}
}

func TestExpand_ReferenceWithoutStart(t *testing.T) {
	e := decode(t, `{
		"beginGeldigheid": "2010-01-01",
		"eindGeldigheid": null,
		"reference": [
			{"eindGeldigheid": "2014-01-01", "code": "A"},
			{"beginGeldigheid": "2014-01-01", "eindGeldigheid": null, "code": "B"}
		]
	}`)

	rows, err := New("reference").Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	if got := bounds(rows); got != "2010-01-01..2014-01-01 2014-01-01.." {
		t.Fatalf("a missing start must not add a boundary, got %s", got)
	}
	if code := rows[0].Lookup("reference.code"); code != "A" {
		t.Errorf("expected the reference without start to cover the first slot, got %v", code)
	}
	if code := rows[1].Lookup("reference.code"); code != "B" {
		t.Errorf("expected reference B in the second slot, got %v", code)
	}
}

func TestExpand_MultipleReferences(t *testing.T) {
	e := decode(t, `{
		"beginGeldigheid": "2000-01-01",
		"eindGeldigheid": "2020-01-01",
		"buurt": [
			{"code": "B1", "beginGeldigheid": "2000-01-01", "eindGeldigheid": "2010-01-01"},
			{"code": "B2", "beginGeldigheid": "2010-01-01", "eindGeldigheid": null}
		],
		"status": [
			{"code": "S1", "beginGeldigheid": "2005-01-01", "eindGeldigheid": "2015-01-01"}
		]
	}`)

	rows, err := New("buurt", "status").Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	want := "2000-01-01..2005-01-01 2005-01-01..2010-01-01 2010-01-01..2015-01-01 2015-01-01..2020-01-01"
	if got := bounds(rows); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	wantRefs := [][2]string{{"B1", ""}, {"B1", "S1"}, {"B2", "S1"}, {"B2", ""}}
	for i, r := range rows {
		buurt := entity.Text(r.Lookup("buurt.code"))
		status := entity.Text(r.Lookup("status.code"))
		if buurt != wantRefs[i][0] || status != wantRefs[i][1] {
			t.Errorf("slot %d: expected %v, got [%s %s]", i, wantRefs[i], buurt, status)
		}
	}
}

func TestExpand_AutoDetectsReferences(t *testing.T) {
	e := decode(t, `{
		"beginGeldigheid": "2010-01-01",
		"ref": [{"beginGeldigheid": "2012-01-01"}],
		"plain": [{"code": "x"}, {"code": "y"}]
	}`)
	rows, err := New().Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if v, _ := rows[0].Get("plain"); len(v.([]*entity.Entity)) != 2 {
		t.Error("relations without validity must be copied verbatim")
	}
}

func TestExpand_DatetimeRendering(t *testing.T) {
	e := decode(t, `{"beginGeldigheid": "2010-01-01T08:30:00", "eindGeldigheid": "2010-01-02T00:00:00.5"}`)
	rows, err := New().Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	if got := bounds(rows); got != "2010-01-01T08:30:00.000000..2010-01-02T00:00:00.500000" {
		t.Errorf("unexpected rendering %s", got)
	}
}

func TestExpand_DropsSlotsOutsideValidity(t *testing.T) {
	var buf bytes.Buffer
	x := New("ref")
	x.Logger = logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "gobexport", &buf)

	e := decode(t, `{
		"beginGeldigheid": "2010-01-01",
		"eindGeldigheid": "2015-01-01",
		"ref": [{"beginGeldigheid": "2005-01-01", "eindGeldigheid": null}]
	}`)
	rows, err := x.Expand(e)
	if err != nil {
		t.Fatal(err)
	}
	if got := bounds(rows); got != "2010-01-01..2015-01-01" {
		t.Errorf("unexpected slots %s", got)
	}
	if !strings.Contains(buf.String(), "timeslots outside validity dropped") {
		t.Errorf("expected a warning for dropped slots, got %q", buf.String())
	}
}

func TestExpand_ConversionErrors(t *testing.T) {
	tests := []string{
		`{"beginGeldigheid": "01-01-2010"}`,
		`{"beginGeldigheid": 2010}`,
		`{"beginGeldigheid": "2010-01-01", "ref": [{"beginGeldigheid": "2011-13-01"}]}`,
	}
	for _, raw := range tests {
		if _, err := New("ref").Expand(decode(t, raw)); !errors.IsCode(err, errors.ErrCodeConversion) {
			t.Errorf("%s: expected conversion error, got %v", raw, err)
		}
	}
}

func TestPipeline(t *testing.T) {
	src := pipeline.FromSlice([]*entity.Entity{
		decode(t, `{"id": "1", "beginGeldigheid": "2010-01-01", "ref": [{"beginGeldigheid": "2012-01-01"}]}`),
		decode(t, `{"id": "2", "beginGeldigheid": "2010-01-01"}`),
	})
	rows, err := pipeline.Collect(context.Background(), New("ref").Pipeline(src))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("expected 3 rows, got %d", len(rows))
	}

	bad := pipeline.FromSlice([]*entity.Entity{decode(t, `{"beginGeldigheid": "never"}`)})
	if _, err := pipeline.Collect(context.Background(), New().Pipeline(bad)); !errors.IsCode(err, errors.ErrCodeConversion) {
		t.Errorf("expected conversion error to end the stream, got %v", err)
	}
}
