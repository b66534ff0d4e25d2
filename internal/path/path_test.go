package path

import (
	"os"
	"path/filepath"
	"testing"
)

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("write executable: %s", err)
	}
	return p
}

func TestLookupFindsExecutableInPath(t *testing.T) {
	dir := t.TempDir()
	want := writeExecutable(t, dir, "greet")

	tab := &Table{}
	tab.Rescan(dir)

	got, ok := tab.Lookup("greet")
	if !ok || got != want {
		t.Fatalf("Lookup: actual (%q, %v), expected (%q, true)", got, ok, want)
	}
}

func TestLookupSkipsNonExecutableAndDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	tab := &Table{}
	tab.Rescan(dir)

	if _, ok := tab.Lookup("data.txt"); ok {
		t.Fatal("expected non-executable file to miss")
	}
	if _, ok := tab.Lookup("sub"); ok {
		t.Fatal("expected directory to miss")
	}
}

func TestLookupMiss(t *testing.T) {
	tab := &Table{}
	tab.Rescan(t.TempDir())

	if _, ok := tab.Lookup("nonexistent_cmd_xyz"); ok {
		t.Fatal("expected miss for nonexistent command")
	}
}

func TestRescanReplacesDirsIgnoringEmptyEntries(t *testing.T) {
	dirA, dirB := t.TempDir(), t.TempDir()
	writeExecutable(t, dirA, "a")
	writeExecutable(t, dirB, "b")

	tab := &Table{}
	tab.Rescan(dirA + "::" + dirB)

	if _, ok := tab.Lookup("a"); !ok {
		t.Fatal("expected a to resolve")
	}
	if _, ok := tab.Lookup("b"); !ok {
		t.Fatal("expected b to resolve")
	}

	tab.Rescan(dirB)
	if _, ok := tab.Lookup("a"); ok {
		t.Fatal("expected a to miss after rescanning without dirA")
	}
}
