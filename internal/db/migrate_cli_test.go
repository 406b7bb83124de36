package db

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	steps := []struct {
		args []string
		want string
	}{
		{[]string{"status"}, "Current version: 0 (dirty: false)"},
		{[]string{"up"}, "Current version: 2 (dirty: false)"},
		{[]string{"down"}, "Current version: 1 (dirty: false)"},
		{[]string{"up"}, "Current version: 2 (dirty: false)"},
	}
	for _, step := range steps {
		var buf bytes.Buffer
		if err := RunMigrateCommand(&buf, step.args, path); err != nil {
			t.Fatalf("migrate %v: %v", step.args, err)
		}
		if !strings.Contains(buf.String(), step.want) {
			t.Errorf("migrate %v output = %q, want it to contain %q", step.args, buf.String(), step.want)
		}
	}
}

func TestRunMigrateCommand_Help(t *testing.T) {
	var buf bytes.Buffer
	if err := RunMigrateCommand(&buf, []string{"help"}, ""); err != nil {
		t.Fatalf("help returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "Usage: tpm-history") {
		t.Errorf("help output missing usage: %q", buf.String())
	}

	buf.Reset()
	if err := RunMigrateCommand(&buf, nil, ""); err == nil {
		t.Error("expected error with no action")
	}

	path := filepath.Join(t.TempDir(), "runs.db")
	buf.Reset()
	if err := RunMigrateCommand(&buf, []string{"sideways"}, path); err == nil {
		t.Error("expected error for unknown action")
	}
}
