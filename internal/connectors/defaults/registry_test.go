package defaults

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewRegistryOrdersBuiltinsBeforeYAML(t *testing.T) {
	dir := t.TempDir()
	source := `
key: extra
name: Extra Mappings
priority: 50
url_template: https://mappings.example.com/{id}
`
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	registry, err := NewRegistry(dir, nil)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	list := registry.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(list))
	}
	want := []string{"anizip", "zenshin", "extra"}
	for i, key := range want {
		if list[i].Key != key {
			t.Fatalf("position %d: expected %s, got %s", i, key, list[i].Key)
		}
	}
}

func TestNewRegistryRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	source := `
key: anizip
name: Shadow
url_template: https://mappings.example.com/{id}
`
	if err := os.WriteFile(filepath.Join(dir, "dup.yaml"), []byte(source), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	registry, err := NewRegistry(dir, nil)
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if len(registry.List()) != 2 {
		t.Fatalf("expected builtins to remain registered, got %d", len(registry.List()))
	}
}
