package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/template-synth/pkg/types"
)

func TestStoreLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	records := []types.TemplateRecord{
		{Filename: "stop/1.png", Type: "stop", Points: []types.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}},
		{Filename: "yield/1.png", Type: "yield", Points: []types.Point{{X: 5, Y: 6}}},
	}
	if err := Store(path, records); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "[\n" +
		`{"filename":"stop/1.png","type":"stop","points":[[1,2],[3,4]]}` + ",\n" +
		`{"filename":"yield/1.png","type":"yield","points":[[5,6]]}` + "\n" +
		"]"
	if string(data) != want {
		t.Errorf("catalog layout:\n%s\nwant:\n%s", data, want)
	}
}

func TestStoreTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	long := make([]types.TemplateRecord, 5)
	for i := range long {
		long[i] = types.TemplateRecord{Filename: "a.png", Type: "a"}
	}
	if err := Store(path, long); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := Store(path, long[:1]); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 record after rewrite, got %d", len(got))
	}
}

func TestStoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := Store(path, nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[\n]" {
		t.Errorf("empty catalog = %q", data)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestLoadPythonStyle(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `[
{"filename": "stop01.png", "type": "stop", "points": [[10, 12], [40.0, 12], [40, 44]]}
]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].Type != "stop" || len(got[0].Points) != 3 {
		t.Fatalf("unexpected records: %+v", got)
	}
	if got[0].Points[1] != types.Pt(40, 12) {
		t.Errorf("point = %+v, want (40,12)", got[0].Points[1])
	}
}

func TestLoadRejectsIncompleteRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`[{"filename": "", "type": "stop", "points": []}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for record without filename")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing catalog")
	}
}
