package workspace

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/entrhq/estate/pkg/types"
)

func TestNewGuard(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		root    string
		wantErr bool
	}{
		{name: "valid existing directory", root: tmpDir, wantErr: false},
		{name: "current directory", root: ".", wantErr: false},
		{name: "empty directory", root: "", wantErr: true},
		{name: "non-existent directory is allowed", root: filepath.Join(tmpDir, "later"), wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, err := NewGuard(tt.root)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewGuard() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && !filepath.IsAbs(guard.Root()) {
				t.Errorf("NewGuard() root %q is not absolute", guard.Root())
			}
		})
	}
}

func TestValidateRelative(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "shard slug", path: "ab/cd/Doe,_Jane--abc", wantErr: false},
		{name: "single segment", path: "bad_shard", wantErr: false},
		{name: "dots inside a name", path: "ab/cd/J.R.R.--xyz", wantErr: false},
		{name: "empty", path: "", wantErr: true},
		{name: "parent escape", path: "../../etc", wantErr: true},
		{name: "nested parent", path: "ab/../../etc", wantErr: true},
		{name: "backslash parent", path: `ab\..\..\etc`, wantErr: true},
		{name: "absolute", path: "/etc/passwd", wantErr: true},
		{name: "leading backslash", path: `\etc`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRelative(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRelative(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestGuardResolveAndMakeRelative(t *testing.T) {
	tmpDir := t.TempDir()
	guard, err := NewGuard(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	abs, err := guard.Resolve("ab/cd/Doe--1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if want := filepath.Join(guard.Root(), "ab", "cd", "Doe--1"); abs != want {
		t.Errorf("Resolve = %q, want %q", abs, want)
	}

	rel, err := guard.MakeRelative(abs)
	if err != nil {
		t.Fatalf("MakeRelative failed: %v", err)
	}
	if rel != "ab/cd/Doe--1" {
		t.Errorf("MakeRelative = %q, want %q", rel, "ab/cd/Doe--1")
	}

	if _, err := guard.MakeRelative(filepath.Dir(guard.Root())); err == nil {
		t.Error("expected error for a path above the root")
	}
	if _, err := guard.Resolve("../outside"); err == nil {
		t.Error("expected error resolving an escaping path")
	}
}

func TestGuardIsWithin(t *testing.T) {
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create guard: %v", err)
	}

	if !guard.IsWithin(guard.Root()) {
		t.Error("root itself should be within")
	}
	if !guard.IsWithin(filepath.Join(guard.Root(), "people")) {
		t.Error("child should be within")
	}
	if guard.IsWithin(guard.Root() + "-sibling") {
		t.Error("sibling with shared prefix must not be within")
	}
}

func TestValidateBaseName(t *testing.T) {
	valid := []string{"interview.mp4", "a", "..hidden", "name with spaces.wav"}
	for _, name := range valid {
		if err := ValidateBaseName(name); err != nil {
			t.Errorf("ValidateBaseName(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", ".", "..", "dir/file", `dir\file`, "nul\x00byte"}
	for _, name := range invalid {
		if err := ValidateBaseName(name); err == nil {
			t.Errorf("ValidateBaseName(%q) expected error", name)
		}
	}
}
