package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ColtMcG1/Mainstage/internal/ir"
)

func TestFmtSubstitutesPlaceholdersLeftToRight(t *testing.T) {
	v, err := fmtFn(nil, []ir.Value{ir.Str("{} and {}"), ir.Int(1), ir.Str("two")})
	if err != nil {
		t.Fatalf("fmtFn failed: %v", err)
	}
	if v.Str != "1 and two" {
		t.Fatalf("expected \"1 and two\", got %q", v.Str)
	}
}

func TestFmtEscapesDoubleBraces(t *testing.T) {
	v, err := fmtFn(nil, []ir.Value{ir.Str("{{literal}} {}"), ir.Int(5)})
	if err != nil {
		t.Fatalf("fmtFn failed: %v", err)
	}
	if v.Str != "{literal} 5" {
		t.Fatalf("expected \"{literal} 5\", got %q", v.Str)
	}
}

func TestFmtMissingArgumentSubstitutesPlaceholder(t *testing.T) {
	v, err := fmtFn(nil, []ir.Value{ir.Str("{} {} {}"), ir.Int(1)})
	if err != nil {
		t.Fatalf("fmtFn failed: %v", err)
	}
	if v.Str != "1 <missing> <missing>" {
		t.Fatalf("expected missing placeholders, got %q", v.Str)
	}
}

func TestFmtSurplusArgumentsAreIgnored(t *testing.T) {
	v, err := fmtFn(nil, []ir.Value{ir.Str("{}"), ir.Int(1), ir.Int(2), ir.Int(3)})
	if err != nil {
		t.Fatalf("fmtFn failed: %v", err)
	}
	if v.Str != "1" {
		t.Fatalf("expected \"1\", got %q", v.Str)
	}
}

func TestFmtRejectsNonStringFormatArgument(t *testing.T) {
	if _, err := fmtFn(nil, []ir.Value{ir.Int(1)}); err == nil {
		t.Fatal("expected an error for a non-Str format argument")
	}
}

func TestReadGlobWithZeroMatchesContributesNoItems(t *testing.T) {
	v, err := readFn(nil, []ir.Value{ir.Str(filepath.Join(t.TempDir(), "*.nonexistent"))})
	if err != nil {
		t.Fatalf("readFn failed: %v", err)
	}
	if v.Kind != ir.KindArray || len(v.Array) != 0 {
		t.Fatalf("expected an empty Array, got %v", v)
	}
}

func TestReadReturnsContentsOfMatchedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	v, err := readFn(nil, []ir.Value{ir.Str(filepath.Join(dir, "*.txt"))})
	if err != nil {
		t.Fatalf("readFn failed: %v", err)
	}
	if v.Kind != ir.KindArray || len(v.Array) != 1 || v.Array[0].Str != "hello" {
		t.Fatalf("expected [\"hello\"], got %v", v)
	}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	ok, err := writeFn(nil, []ir.Value{ir.Str(path), ir.Str("content")})
	if err != nil {
		t.Fatalf("writeFn failed: %v", err)
	}
	if ok.Kind != ir.KindBool || !ok.Bool {
		t.Fatalf("expected Bool(true), got %v", ok)
	}
	v, err := readFn(nil, []ir.Value{ir.Str(path)})
	if err != nil {
		t.Fatalf("readFn failed: %v", err)
	}
	if len(v.Array) != 1 || v.Array[0].Str != "content" {
		t.Fatalf("expected [\"content\"], got %v", v)
	}
}

func TestWriteInvalidArgumentsReturnsErrorStringNotGoError(t *testing.T) {
	v, err := writeFn(nil, []ir.Value{ir.Int(1)})
	if err != nil {
		t.Fatalf("writeFn should not return a Go error, got %v", err)
	}
	if v.Kind != ir.KindStr {
		t.Fatalf("expected an error Str, got %v", v)
	}
}
