package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/salesmesh/core"
)

type failingSearcher struct{ err error }

func (s failingSearcher) Search(context.Context, string) (string, error) { return "", s.err }

func declByName(t *testing.T, decls []core.FunctionDecl, name string) core.FunctionDecl {
	t.Helper()
	for _, d := range decls {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("declaration %s not found", name)
	return core.FunctionDecl{}
}

func callText(t *testing.T, decl core.FunctionDecl, args map[string]any) string {
	t.Helper()
	v, err := decl.Call(context.Background(), args)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	text, ok := v.(string)
	if !ok {
		t.Fatalf("expected string result, got %T", v)
	}
	return text
}

func TestFunctions_DeclaresAllThree(t *testing.T) {
	decls := Functions(NewMemorySearcher(), NewMemorySearcher(), NewMemorySearcher())
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decls))
	}

	names := map[string]bool{}
	for _, d := range decls {
		names[d.Name] = true
		props, _ := d.Parameters["properties"].(map[string]any)
		if _, ok := props["query"]; !ok {
			t.Errorf("%s: schema missing query property: %+v", d.Name, d.Parameters)
		}
		required, _ := d.Parameters["required"].([]string)
		if len(required) != 1 || required[0] != "query" {
			t.Errorf("%s: query should be required: %+v", d.Name, d.Parameters)
		}
	}
	for _, want := range []string{SalesDocsFunction, CustomerDocsFunction, UserDocsFunction} {
		if !names[want] {
			t.Errorf("missing declaration %s", want)
		}
	}
}

func TestDecl_Hit(t *testing.T) {
	stub := NewMemorySearcher()
	stub.Add(Document{Title: "Panda Health Org Chart", Content: "Key contacts in procurement."})
	decl := declByName(t, Functions(stub, stub, stub), CustomerDocsFunction)

	got := callText(t, decl, map[string]any{"query": "Panda Health"})
	if !strings.Contains(got, "Panda Health Org Chart") {
		t.Errorf("unexpected result: %q", got)
	}
}

func TestDecl_EmptyIndexText(t *testing.T) {
	stub := NewMemorySearcher()
	decl := declByName(t, Functions(stub, stub, stub), CustomerDocsFunction)

	got := callText(t, decl, map[string]any{"query": "anything"})
	if got != "No relevant documents found in the pursuit index." {
		t.Errorf("unexpected empty-result text: %q", got)
	}
}

func TestDecl_SearcherFailureRendersAsText(t *testing.T) {
	boom := failingSearcher{err: errors.New("index unavailable")}
	decl := declByName(t, Functions(boom, boom, boom), SalesDocsFunction)

	got := callText(t, decl, map[string]any{"query": "MEDDIC"})
	if !strings.Contains(got, "An error occurred while retrieving documents from the sales index") {
		t.Errorf("unexpected failure text: %q", got)
	}
}

func TestDecl_BlankQuery(t *testing.T) {
	stub := NewMemorySearcher()
	decl := declByName(t, Functions(stub, stub, stub), UserDocsFunction)

	for _, args := range []map[string]any{nil, {}, {"query": "   "}, {"query": 42}} {
		got := callText(t, decl, args)
		if !strings.HasPrefix(got, "Input error:") {
			t.Errorf("args %+v: unexpected text %q", args, got)
		}
	}
}

func TestMemorySearcher_KeywordMatch(t *testing.T) {
	s := NewMemorySearcher(
		Document{Title: "MEDDIC Overview", Content: "Metrics, economic buyer, decision criteria."},
		Document{Title: "Unrelated", Content: "Nothing here."},
	)

	got, err := s.Search(context.Background(), "economic buyer")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(got, "MEDDIC Overview") || strings.Contains(got, "Unrelated") {
		t.Errorf("unexpected hits: %q", got)
	}
}
