package translator

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTranslateFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.yaml")
	doc := `
apps:
  web:
    image: nginx
    ports:
      - "8080:80"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write stack file: %v", err)
	}

	rs, errs, err := NewStackTranslator().TranslateFromFile(path)
	if err != nil {
		t.Fatalf("Translation failed: %v", err)
	}
	if rs == nil {
		t.Fatalf("Document did not translate: %v", errs.Errors())
	}
	if len(rs.Apps) != 1 || rs.Apps[0].Name != "web" {
		t.Errorf("Unexpected app graph: %+v", rs.Apps)
	}
}

func TestTranslateFromFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.json")
	doc := `{"apps": {"web": {"image": "nginx"}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write stack file: %v", err)
	}

	rs, errs, err := NewStackTranslator().TranslateFromFile(path)
	if err != nil {
		t.Fatalf("Translation failed: %v", err)
	}
	if rs == nil {
		t.Fatalf("JSON document did not translate: %v", errs.Errors())
	}
}

func TestTranslateUnsupportedExtension(t *testing.T) {
	if _, _, err := NewStackTranslator().TranslateFromFile("stack.toml"); err == nil {
		t.Error("Expected an error for an unsupported extension")
	}
}

func TestTranslateEmptyDocument(t *testing.T) {
	if _, _, err := NewStackTranslator().Translate([]byte("")); err == nil {
		t.Error("Expected an error for an empty document")
	}
}

func TestTranslateStopsAfterSchemaErrors(t *testing.T) {
	// A document with schema errors must not reach resolution.
	rs, errs, err := NewStackTranslator().Translate([]byte(`
apps:
  web:
    image: nginx
    bogus: true
    envFrom:
      secrets:
        - missing-secret
`))
	if err != nil {
		t.Fatalf("Unexpected hard error: %v", err)
	}
	if rs != nil {
		t.Fatal("Expected nil stack for an invalid document")
	}
	// Only the schema error is reported; the dangling secret reference is
	// not checked until the shape is fixed.
	for _, e := range errs.Errors() {
		if _, ok := e.(*ReferenceError); ok {
			t.Errorf("Resolution ran despite schema errors: %v", e)
		}
	}
}
