package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/xmlprofile/dbopen"
	"github.com/hazyhaar/xmlprofile/valueset"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &Store{DB: db, Path: ":memory:"}
}

func TestElementMergeAndReplace(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.MergeElement(ctx, "config", valueset.Of("server"), valueset.Of("version")); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.MergeElement(ctx, "config", valueset.Of("client", "server"), valueset.New()); err != nil {
		t.Fatalf("merge 2: %v", err)
	}

	e, err := s.GetElement(ctx, "config")
	if err != nil || e == nil {
		t.Fatalf("get: %v, %v", e, err)
	}
	if diff := cmp.Diff([]string{"client", "server"}, e.Children.Sorted()); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"version"}, e.Attributes.Sorted()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}

	if err := s.ReplaceChildren(ctx, "config", valueset.Of("client")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	e, _ = s.GetElement(ctx, "config")
	if diff := cmp.Diff([]string{"client"}, e.Children.Sorted()); diff != "" {
		t.Errorf("children after replace (-want +got):\n%s", diff)
	}
	if !e.Attributes.Has("version") {
		t.Error("ReplaceChildren touched attributes")
	}

	if err := s.ReplaceAttributes(ctx, "fresh", valueset.Of("id")); err != nil {
		t.Fatalf("replace on unknown: %v", err)
	}
	names, _ := s.ElementNames(ctx)
	if diff := cmp.Diff([]string{"config", "fresh"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}

	if err := s.MergeElement(ctx, "", nil, nil); err == nil {
		t.Error("merge with empty name succeeded")
	}

	missing, err := s.GetElement(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetElement(nope) = %v, %v; want nil, nil", missing, err)
	}
}

func TestEdgesAndParents(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.MergeElement(ctx, "p1", valueset.Of("e", "ee"), nil)
	s.MergeElement(ctx, "p2", valueset.Of("e"), nil)
	s.MergeElement(ctx, "p3", valueset.Of("see"), nil)

	parents, err := s.ParentsOf(ctx, "e")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, parents); diff != "" {
		t.Errorf("parents mismatch (-want +got):\n%s", diff)
	}

	removed, err := s.RemoveChildEdge(ctx, "p1", "e")
	if err != nil || !removed {
		t.Fatalf("remove edge: %v, %v", removed, err)
	}
	removed, err = s.RemoveChildEdge(ctx, "p1", "e")
	if err != nil || removed {
		t.Fatalf("second remove: %v, %v; want false, nil", removed, err)
	}
	if removed, err := s.RemoveChildEdge(ctx, "ghost", "e"); err != nil || removed {
		t.Fatalf("remove on unknown parent: %v, %v", removed, err)
	}

	touched, err := s.SweepChild(ctx, "e")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p2"}, touched); diff != "" {
		t.Errorf("sweep touched mismatch (-want +got):\n%s", diff)
	}
	p1, _ := s.GetElement(ctx, "p1")
	if diff := cmp.Diff([]string{"ee"}, p1.Children.Sorted()); diff != "" {
		t.Errorf("p1 children after sweep (-want +got):\n%s", diff)
	}
}

func TestAttributeValues(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.MergeValues(ctx, "server", "port", valueset.Of("8080")); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeValues(ctx, "server", "port", valueset.Of("9090", "8080")); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeValues(ctx, "client", "port", valueset.Of("1")); err != nil {
		t.Fatal(err)
	}

	vals, ok, err := s.GetValues(ctx, "server", "port")
	if err != nil || !ok {
		t.Fatalf("get values: %v %v", ok, err)
	}
	if diff := cmp.Diff([]string{"8080", "9090"}, vals.Sorted()); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	if err := s.ReplaceValues(ctx, "server", "port", valueset.Of("443")); err != nil {
		t.Fatal(err)
	}
	vals, _, _ = s.GetValues(ctx, "server", "port")
	if diff := cmp.Diff([]string{"443"}, vals.Sorted()); diff != "" {
		t.Errorf("values after replace (-want +got):\n%s", diff)
	}

	if _, ok, _ := s.GetValues(ctx, "server", "host"); ok {
		t.Error("GetValues on missing record reported ok")
	}

	if err := s.DeleteAttribute(ctx, "server", "port"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetValues(ctx, "server", "port"); ok {
		t.Error("record survived DeleteAttribute")
	}
	if _, ok, _ := s.GetValues(ctx, "client", "port"); !ok {
		t.Error("DeleteAttribute removed a record keyed on another element")
	}

	s.MergeValues(ctx, "client", "id", valueset.Of("x"))
	n, err := s.DeleteAttributesOf(ctx, "client")
	if err != nil || n != 2 {
		t.Fatalf("DeleteAttributesOf = %d, %v; want 2", n, err)
	}
}

func TestRoots(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.AddRoot(ctx, "config"); err != nil {
			t.Fatalf("add root: %v", err)
		}
	}
	s.AddRoot(ctx, "Config")
	roots, _ := s.Roots(ctx)
	if diff := cmp.Diff([]string{"Config", "config"}, roots); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
	if ok, _ := s.HasRoot(ctx, "config"); !ok {
		t.Error("HasRoot(config) = false")
	}
	s.RemoveRoot(ctx, "config")
	s.RemoveRoot(ctx, "config")
	if ok, _ := s.HasRoot(ctx, "config"); ok {
		t.Error("HasRoot after remove = true")
	}
}

// rawElement stores children text as-is, the way append-style tooling
// leaves it.
func rawElement(t *testing.T, s *Store, name, children string) {
	t.Helper()
	if _, err := s.DB.Exec(`INSERT INTO elements (name, children) VALUES (?, ?)`, name, children); err != nil {
		t.Fatal(err)
	}
}

func TestNormalize(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	sep := valueset.Separator

	rawElement(t, s, "a", "x"+sep+"x"+sep+sep+"b")
	rawElement(t, s, "b", "c")
	if _, err := s.DB.Exec(`INSERT INTO attributes (attribute, element, vals) VALUES ('k', 'a', ?)`,
		"2"+sep+"1"+sep+"2"); err != nil {
		t.Fatal(err)
	}

	n, err := s.NormalizeElements(ctx, nil)
	if err != nil || n != 1 {
		t.Fatalf("NormalizeElements = %d, %v; want 1", n, err)
	}
	var children string
	s.DB.QueryRow(`SELECT children FROM elements WHERE name = 'a'`).Scan(&children)
	if children != "b"+sep+"x" {
		t.Errorf("children = %q", children)
	}

	n, err = s.NormalizeAttributes(ctx, []AttributeKey{{Element: "a", Attribute: "k"}, {Element: "a", Attribute: "missing"}})
	if err != nil || n != 1 {
		t.Fatalf("NormalizeAttributes = %d, %v; want 1", n, err)
	}
	n, _ = s.NormalizeAttributes(ctx, nil)
	if n != 0 {
		t.Errorf("second pass changed %d rows, want 0", n)
	}
}

func TestIngestions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ok := &Ingestion{ID: "a", Root: "config", Elements: 3, StartedAt: 1}
	bad := &Ingestion{ID: "b", Root: "config", StartedAt: 2}
	s.BeginIngestion(ctx, ok)
	s.BeginIngestion(ctx, bad)
	s.FinishIngestion(ctx, ok, nil)
	s.FinishIngestion(ctx, bad, errors.New("disk full"))

	list, err := s.ListIngestions(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != "b" {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Status != IngestionFailed || list[0].Error != "disk full" {
		t.Errorf("failed run = %+v", list[0])
	}
	if list[1].Status != IngestionDone {
		t.Errorf("done run status = %q", list[1].Status)
	}
	if one, _ := s.ListIngestions(ctx, 1); len(one) != 1 {
		t.Errorf("limit 1 returned %d", len(one))
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "p.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	s.AddRoot(ctx, "config")
	s.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("open read-only: %v", err)
	}
	defer ro.Close()
	if ok, _ := ro.HasRoot(ctx, "config"); !ok {
		t.Error("root missing through read-only handle")
	}
	if err := ro.AddRoot(ctx, "other"); err == nil {
		t.Error("write through read-only handle succeeded")
	}
}
