package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

// writeStack writes a stack file into a temp dir and returns its path.
func writeStack(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("Failed to write stack file: %v", err)
	}
	return path
}

func TestValidateCommand(t *testing.T) {
	path := writeStack(t, `
apps:
  web:
    image: nginx
    ports:
      - "8080:80"
`)

	rootCmd.SetArgs([]string{"validate", "-f", path, "--skip-k8s-check"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("validate failed on a valid file: %v", err)
	}
}

func TestValidateCommandRejectsBadFile(t *testing.T) {
	path := writeStack(t, `
apps:
  web:
    image: nginx
    envFrom:
      configs:
        - missing
`)

	rootCmd.SetArgs([]string{"validate", "-f", path, "--skip-k8s-check"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("validate succeeded on a file with an undeclared config")
	}
}

func TestValidateCommandRequiresFile(t *testing.T) {
	validateOpts.file = ""
	rootCmd.SetArgs([]string{"validate", "--skip-k8s-check"})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("validate succeeded without a stack file")
	}
}
