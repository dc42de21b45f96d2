package state

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hkxedit/hkxedit/internal/fileutil"
)

func TestAddAndRemoveClampsCurrent(t *testing.T) {
	s := NewState()
	if _, ok := s.RemoveCurrent(); ok {
		t.Fatalf("expected no current file in empty session")
	}

	s.AddFile("a.xml", "h1", "a1")
	s.AddFile("b.xml", "h2", "b1")
	s.AddFile("c.xml", "h3", "c1")
	if s.Current != 2 {
		t.Fatalf("expected current 2, got %d", s.Current)
	}

	s.Current = 1
	removed, ok := s.RemoveCurrent()
	if !ok || removed.Path != "b.xml" {
		t.Fatalf("expected b.xml removed, got %#v", removed)
	}
	if s.Current != 1 {
		t.Fatalf("expected current to stay at 1, got %d", s.Current)
	}

	s.RemoveCurrent()
	if s.Current != 0 {
		t.Fatalf("expected current clamped to 0, got %d", s.Current)
	}
	s.RemoveCurrent()
	if s.Current != -1 {
		t.Fatalf("expected current -1, got %d", s.Current)
	}
	if _, ok := s.CurrentFile(); ok {
		t.Fatalf("expected no current file")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()

	s, err := Load(root)
	if err != nil {
		t.Fatalf("load empty session: %v", err)
	}
	if s.Current != -1 || len(s.Files) != 0 {
		t.Fatalf("expected empty session, got %#v", s)
	}

	s.AddFile("a.xml", "h1", "a1")
	s.AddFile("b.xml", "h2", "b1")
	s.Current = 0
	s.Skeleton = "skeleton.xml"
	if err := s.Save(root); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.Current != 0 || loaded.Skeleton != "skeleton.xml" {
		t.Fatalf("unexpected session %#v", loaded)
	}
	got := []string{loaded.Files[0].Path, loaded.Files[1].Path}
	if !reflect.DeepEqual(got, []string{"a.xml", "b.xml"}) {
		t.Fatalf("unexpected files %v", got)
	}
}

func TestLoadRejectsCorruptSession(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, SessionDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(root), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(root); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestChangedFiles(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.xml")
	b := filepath.Join(root, "b.xml")
	for _, path := range []string{a, b} {
		if err := os.WriteFile(path, []byte(path), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	hashA, _ := fileutil.HashFile(a)
	hashB, _ := fileutil.HashFile(b)

	s := NewState()
	s.AddFile(a, "h1", hashA)
	s.AddFile(b, "h2", hashB)
	s.AddFile(filepath.Join(root, "gone.xml"), "h3", "x")

	if err := os.WriteFile(b, []byte("edited"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed := s.ChangedFiles()
	want := []string{b, filepath.Join(root, "gone.xml")}
	if !reflect.DeepEqual(changed, want) {
		t.Fatalf("expected changed %v, got %v", want, changed)
	}

	if s.HasChanged(a, hashA) {
		t.Fatalf("expected a.xml unchanged")
	}
	newHash, _ := fileutil.HashFile(b)
	s.SetFileHash(b, newHash)
	if s.HasChanged(b, newHash) {
		t.Fatalf("expected b.xml hash updated")
	}
	if !s.HasChanged("unknown.xml", "") {
		t.Fatalf("expected unknown file to count as changed")
	}
}

func TestMigrateStateV1(t *testing.T) {
	s := &State{
		Version: "1",
		Files:   []FileState{{Path: "a.xml"}, {Path: "b.xml"}},
	}

	migrateState(s)

	if s.Version != CurrentStateVersion {
		t.Fatalf("expected version %q, got %q", CurrentStateVersion, s.Version)
	}
	if s.Current != 1 {
		t.Fatalf("expected last file current, got %d", s.Current)
	}

	s = &State{Version: CurrentStateVersion, Current: 7}
	migrateState(s)
	if s.Current != -1 || s.Files == nil {
		t.Fatalf("expected clamped empty session, got %#v", s)
	}
}
