package consolidate

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/xmlprofile/doctree"
	"github.com/hazyhaar/xmlprofile/extract"
	"github.com/hazyhaar/xmlprofile/valueset"
)

var setCmp = cmp.Comparer(func(a, b valueset.Set) bool { return a.Equal(b) })

func TestConsolidate(t *testing.T) {
	doc := doctree.E("config", nil,
		doctree.E("server", []string{"port", "8080"}, doctree.E("timeout", nil)),
		doctree.E("server", []string{"port", "9090", "host", "b"}),
		doctree.E("server", []string{"port", "8080"}, doctree.E("retry", nil)),
	)
	b := Consolidate(extract.Extract(doc))

	if b.Root != "config" {
		t.Fatalf("Root = %q", b.Root)
	}
	if b.Len() != 4 {
		t.Fatalf("Len = %d, want 4", b.Len())
	}

	server, ok := b.Lookup("server")
	if !ok {
		t.Fatal("server missing")
	}
	want := Record{
		Name:       "server",
		Children:   valueset.Of("timeout", "retry"),
		Attributes: valueset.Of("port", "host"),
		Values: map[string]valueset.Set{
			"port": valueset.Of("8080", "9090"),
			"host": valueset.Of("b"),
		},
	}
	if diff := cmp.Diff(want, server, setCmp); diff != "" {
		t.Errorf("server mismatch (-want +got):\n%s", diff)
	}

	cfg, _ := b.Lookup("config")
	if diff := cmp.Diff([]string{"server"}, cfg.Children.Sorted()); diff != "" {
		t.Errorf("config children mismatch (-want +got):\n%s", diff)
	}
	if _, ok := b.Lookup("nope"); ok {
		t.Error("Lookup(nope) reported found")
	}
}

func TestMergeOrderIndependent(t *testing.T) {
	recs := []extract.LocalRecord{
		{Name: "x", Children: []string{"a", "b"}, Attrs: []doctree.Attr{{Name: "k", Value: "1"}}},
		{Name: "x", Children: []string{"c"}, Attrs: []doctree.Attr{{Name: "k", Value: "2"}, {Name: "j", Value: ""}}},
		{Name: "x", Children: []string{"a", ""}},
		{Name: "x", Attrs: []doctree.Attr{{Name: "k", Value: "1"}, {Name: "m", Value: "z"}}},
	}
	base := Merge("x", recs)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		perm := append([]extract.LocalRecord(nil), recs...)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		got := Merge("x", perm)
		if diff := cmp.Diff(base, got, setCmp); diff != "" {
			t.Fatalf("permutation %d differs (-base +got):\n%s", i, diff)
		}
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, base.Children.Sorted()); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"j", "k", "m"}, base.Attributes.Sorted()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	// An empty attribute value is not a member.
	if base.Values["j"].Len() != 0 {
		t.Errorf("values[j] = %v, want empty", base.Values["j"].Sorted())
	}
}

func TestMergeSingleMatchesLoop(t *testing.T) {
	rec := extract.LocalRecord{Name: "s", Children: []string{"b", "a", "b"}, Attrs: []doctree.Attr{{Name: "p", Value: "1"}}}
	single := Merge("s", []extract.LocalRecord{rec})
	looped := Merge("s", []extract.LocalRecord{rec, {Name: "s"}})
	if diff := cmp.Diff(single, looped, setCmp); diff != "" {
		t.Errorf("shortcut differs from full merge (-single +looped):\n%s", diff)
	}
}
