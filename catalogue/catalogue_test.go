package catalogue

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/gobexport/auth/oidc"
	"github.com/kbukum/gobexport/buffer"
	"github.com/kbukum/gobexport/errors"
	"github.com/kbukum/gobexport/export"
	"github.com/kbukum/gobexport/httpclient"
	"github.com/kbukum/gobexport/source"
	"github.com/kbukum/gobexport/storage/local"
)

const catalogueYAML = `
sources:
  meetbouten:
    type: graphql
    query: |
      { meetboutenMeetbouten { edges { node { identificatie ligtInBuurt { edges { node { code } } } } } } }
    batch_size: 500
  metingen:
    type: streaming
    query: |
      { meetboutenMetingen { edges { node { identificatie hoort { identificatie } } } } }
    batch_size: 0
  buurten:
    type: rest
    path: /gob/public/gebieden/buurten/
products:
  meetbouten_csv:
    source: meetbouten
    format: formats/meetbouten.yml
    filters:
      - type: unique
        field: identificatie
    sorters:
      - key: ligtInBuurt.code
        rank: prefer
        values: [A, B]
    output: meetbouten/CSV/MBT_MEETBOUT.csv
  meetbouten_json:
    source: meetbouten
    sink: ndjson
    format:
      id: identificatie
    output: meetbouten/JSON/MBT_MEETBOUT.ndjson
  buurten_history:
    source: buurten
    delimiter: ","
    history:
      references: [ligtInWijk]
    format:
      code: code
      begin: beginGeldigheid
    output: gebieden/buurten.csv
    append: true
  metingen_csv:
    source: metingen
    format:
      id: identificatie
    output: meetbouten/CSV/MBT_METING.csv
`

const meetboutenFormat = `
identificatie: identificatie
buurt: ligtInBuurt.[0].code
`

func writeCatalogue(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "formats"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "formats", "meetbouten.yml"), []byte(meetboutenFormat), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "catalogue.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newClient(t *testing.T, baseURL string) *httpclient.Client {
	t.Helper()
	c, err := httpclient.New(httpclient.Config{BaseURL: baseURL, Retry: httpclient.DefaultRetry(2, time.Millisecond)})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoad_KeepsOrder(t *testing.T) {
	c, err := Load(writeCatalogue(t, catalogueYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var sources, products []string
	for _, s := range c.Sources {
		sources = append(sources, s.Name)
	}
	for _, p := range c.Products {
		products = append(products, p.Name)
	}
	if strings.Join(sources, ",") != "meetbouten,metingen,buurten" {
		t.Errorf("unexpected source order %v", sources)
	}
	if strings.Join(products, ",") != "meetbouten_csv,meetbouten_json,buurten_history,metingen_csv" {
		t.Errorf("unexpected product order %v", products)
	}

	s, _ := c.Source("meetbouten")
	if s.Type != TypeGraphQL || s.BatchSize == nil || *s.BatchSize != 500 {
		t.Errorf("unexpected source %+v", s)
	}
	p, _ := c.Product("buurten_history")
	if !p.Append || p.History == nil || p.History.References[0] != "ligtInWijk" {
		t.Errorf("unexpected product %+v", p)
	}
	if err := c.CheckFormats(nil); err != nil {
		t.Errorf("expected formats to compile, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	c, err := Load(writeCatalogue(t, catalogueYAML))
	if err != nil {
		t.Fatal(err)
	}
	store, _ := local.NewStorage(t.TempDir())
	cache := buffer.New(store)

	products, err := c.Build(Deps{
		Client:         newClient(t, "http://api.invalid"),
		Buffer:         cache,
		GraphQLBatch:   1000,
		StreamingBatch: 200,
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("expected 4 products, got %d", len(products))
	}

	csvProduct, ndjson, hist, metingen := products[0], products[1], products[2], products[3]
	if csvProduct.Source != ndjson.Source {
		t.Error("expected products of one source to share it")
	}
	if _, ok := csvProduct.Source.(*source.GraphQL); ok {
		t.Error("expected a shared source to be buffered")
	}
	if _, ok := hist.Source.(*source.REST); !ok {
		t.Errorf("expected an unshared rest source, got %T", hist.Source)
	}
	if _, ok := metingen.Source.(*source.Streaming); !ok {
		t.Errorf("expected a streaming source, got %T", metingen.Source)
	}

	if got := csvProduct.Spec.Fieldnames(); strings.Join(got, ",") != "identificatie,buurt" {
		t.Errorf("unexpected format file columns %v", got)
	}
	if csvProduct.Filter == nil || len(csvProduct.Sorters) != 1 {
		t.Errorf("expected filter and sorter, got %+v", csvProduct)
	}
	if _, ok := ndjson.Sink.(export.NDJSONSink); !ok {
		t.Errorf("expected ndjson sink, got %T", ndjson.Sink)
	}
	if sink, ok := hist.Sink.(*export.CSVSink); !ok || sink.Delimiter != ',' {
		t.Errorf("expected csv sink with comma, got %#v", hist.Sink)
	}
	if hist.History == nil || hist.History.References[0] != "ligtInWijk" || !hist.Append {
		t.Errorf("unexpected history product %+v", hist)
	}
}

func TestBuild_SelectsProducts(t *testing.T) {
	c, err := Load(writeCatalogue(t, catalogueYAML))
	if err != nil {
		t.Fatal(err)
	}
	store, _ := local.NewStorage(t.TempDir())
	deps := Deps{Client: newClient(t, "http://api.invalid"), Buffer: buffer.New(store)}

	products, err := c.Build(deps, "metingen_csv", "meetbouten_csv")
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 || products[0].Name != "meetbouten_csv" || products[1].Name != "metingen_csv" {
		t.Fatalf("expected catalogue order, got %+v", products)
	}
	if _, ok := products[0].Source.(*source.GraphQL); !ok {
		t.Errorf("expected an unbuffered source when only one product uses it, got %T", products[0].Source)
	}

	if _, err := c.Build(deps, "unknown"); !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

type staticProvider struct{}

func (staticProvider) Acquire(context.Context) (*oidc.Credentials, error) {
	return &oidc.Credentials{AccessToken: "t", ExpiresIn: 300, RefreshToken: "r", RefreshExpiresIn: 600}, nil
}

func (staticProvider) Refresh(context.Context, string) (*oidc.Credentials, error) {
	return staticProvider{}.Acquire(context.Background())
}

func TestBuild_SecureSourcesShareCredentials(t *testing.T) {
	const secured = `
sources:
  a:
    type: graphql
    query: "{ a { edges { node { id } } } }"
    secure: true
  b:
    type: rest
    path: /gob/b/
    secure: true
products:
  a:
    source: a
    format: {id: id}
    output: a.csv
  b:
    source: b
    format: {id: id}
    output: b.csv
`
	c, err := Parse([]byte(secured))
	if err != nil {
		t.Fatal(err)
	}
	client := newClient(t, "http://api.invalid")

	if _, err := c.Build(Deps{Client: client}); !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error without credentials, got %v", err)
	}

	var built atomic.Int32
	creds := oidc.NewCache(func(string) (oidc.Provider, error) {
		built.Add(1)
		return staticProvider{}, nil
	})
	if _, err := c.Build(Deps{Client: client, Credentials: creds, Identity: "gob"}); err != nil {
		t.Fatal(err)
	}
	if creds.Len() != 1 || built.Load() != 1 {
		t.Errorf("expected one lifecycle for the shared identity, got %d", creds.Len())
	}
}

func TestParse_Invalid(t *testing.T) {
	const product = "products:\n  p:\n    source: s\n    format: {id: id}\n    output: p.csv\n"
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"unknown type", "sources:\n  s:\n    type: soap\n" + product, "sources.s.type: must be one of"},
		{"rest without path", "sources:\n  s:\n    type: rest\n" + product, "sources.s.path: is required"},
		{"graphql without query", "sources:\n  s:\n    type: graphql\n" + product, "sources.s.query: is required"},
		{"rest batch size", "sources:\n  s:\n    type: rest\n    path: /x/\n    batch_size: 10\n" + product, "sources.s.batch_size: is not supported"},
		{"negative batch size", "sources:\n  s:\n    type: streaming\n    query: '{ a }'\n    batch_size: -5\n" + product, "sources.s.batch_size: must be at least 0"},
		{"identity without secure", "sources:\n  s:\n    type: rest\n    path: /x/\n    identity: gob\n" + product, "sources.s.identity: requires secure"},
		{"unknown source", "sources:\n  other:\n    type: rest\n    path: /x/\n" + product, "products.p.source: is not defined"},
		{"missing format", "sources:\n  s:\n    type: rest\n    path: /x/\nproducts:\n  p:\n    source: s\n    output: p.csv\n", "products.p.format: is required"},
		{"missing output", "sources:\n  s:\n    type: rest\n    path: /x/\nproducts:\n  p:\n    source: s\n    format: {id: id}\n", "products.p.output: is required"},
		{"bad sink", "sources:\n  s:\n    type: rest\n    path: /x/\n" + product + "    sink: xml\n", "products.p.sink: must be one of"},
		{"bad delimiter", "sources:\n  s:\n    type: rest\n    path: /x/\n" + product + "    delimiter: ';;'\n", "products.p.delimiter: must be a single character"},
		{"bad filter", "sources:\n  s:\n    type: rest\n    path: /x/\n" + product + "    filters: [{type: sample}]\n", `products.p.filters: unknown filter type "sample"`},
		{"prefer without values", "sources:\n  s:\n    type: rest\n    path: /x/\n" + product + "    sorters: [{key: a.b, rank: prefer}]\n", "products.p.sorters.values: are required for prefer"},
		{"no products", "sources:\n  s:\n    type: rest\n    path: /x/\n", "products: is empty"},
		{"not a mapping", "sources: [a, b]\n" + product, "sources must be a mapping"},
		{"not yaml", "sources: {", "catalogue:"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if !errors.IsCode(err, errors.ErrCodeConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestCheckFormats(t *testing.T) {
	const bad = `
sources:
  s: {type: rest, path: /x/}
products:
  p:
    source: s
    format:
      datum: {action: format, value: datum, formatter: nope}
    output: p.csv
  q:
    source: s
    format: formats/missing.yml
    output: q.csv
`
	c, err := Load(writeCatalogue(t, bad))
	if err != nil {
		t.Fatal(err)
	}
	err = c.CheckFormats(nil)
	if !errors.IsCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	for _, want := range []string{"products.p.format:", "products.q.format:"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestBuild_ExportsFromREST(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"_links": map[string]any{"next": map[string]any{"href": nil}},
			"results": []any{
				map[string]any{"code": "A01", "naam": "Centrum"},
				map[string]any{"code": "A02", "naam": ""},
			},
		})
	}))
	defer srv.Close()

	const cat = `
sources:
  buurten: {type: rest, path: /gob/public/gebieden/buurten/}
products:
  buurten_csv:
    source: buurten
    format: {code: code, naam: naam}
    filters: [{type: notempty, fields: [naam]}]
    output: gebieden/buurten.csv
  buurten_ndjson:
    source: buurten
    sink: ndjson
    format: {code: code}
    output: gebieden/buurten.ndjson
`
	c, err := Parse([]byte(cat))
	if err != nil {
		t.Fatal(err)
	}
	out, _ := local.NewStorage(t.TempDir())
	scratch, _ := local.NewStorage(t.TempDir())
	cache := buffer.New(scratch)

	products, err := c.Build(Deps{Client: newClient(t, srv.URL), Buffer: cache})
	if err != nil {
		t.Fatal(err)
	}
	results, err := export.NewRunner(out, export.WithBuffer(cache)).Run(context.Background(), products...)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected one API call for two products, got %d", hits.Load())
	}
	if results[0].Rows != 1 || results[1].Rows != 2 {
		t.Errorf("unexpected results %+v", results)
	}

	rc, err := out.Download(context.Background(), "gebieden/buurten.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "code;naam\nA01;Centrum\n" {
		t.Errorf("unexpected csv %q", b)
	}
}
