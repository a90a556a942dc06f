package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testProfile(name string) *Profile {
	now := time.Now().UTC().Truncate(time.Second)
	return &Profile{
		ID:        GenerateID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("Sample A")
	p.StorageLocation = "/data/samples/a"
	p.Attributes = map[string]any{"integration_ms": 200.0}
	p.Devices = []DeviceGeometry{{
		ID:       GenerateID(),
		Name:     "pixel-1",
		Shape:    ShapeRectangle,
		WidthUM:  200,
		LengthUM: 300,
	}}

	if err := store.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.ID != p.ID {
		t.Errorf("ID = %q, want %q", got.ID, p.ID)
	}
	if got.Name != p.Name {
		t.Errorf("Name = %q, want %q", got.Name, p.Name)
	}
	if len(got.Devices) != 1 || got.Devices[0].Name != "pixel-1" {
		t.Errorf("Devices = %+v", got.Devices)
	}
}

func TestStore_SaveRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("Sample B")
	p.ID = ""

	err = store.Save(p)
	if !errors.Is(err, ErrMalformedRecord) {
		t.Fatalf("Save() error = %v, want ErrMalformedRecord", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected save must not write a file, found %d entries", len(entries))
	}
}

func TestStore_SaveRejectsNonUUID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("Sample C")
	p.ID = "not-a-uuid"

	if err := store.Save(p); !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("Save() error = %v, want ErrMalformedRecord", err)
	}
}

func TestStore_SaveRejectsEmptyName(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("   ")
	if err := store.Save(p); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Save() error = %v, want ErrInvalidName", err)
	}
}

func TestStore_OverwriteIsAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("Sample D")
	if err := store.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	p.Name = "Sample D renamed"
	if err := store.Save(p); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := store.Load(p.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Name != "Sample D renamed" {
		t.Errorf("Name = %q after overwrite", got.Name)
	}

	// No temp files may survive a completed save.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected exactly 1 file after overwrite, found %d", len(entries))
	}
}

func TestStore_LoadAllSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	good := testProfile("Good")
	if err := store.Save(good); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	badPath := filepath.Join(dir, GenerateID()+".json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0640); err != nil {
		t.Fatalf("writing malformed file: %v", err)
	}

	profiles, malformed, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != good.ID {
		t.Errorf("LoadAll() profiles = %d, want the one good record", len(profiles))
	}
	if len(malformed) != 1 {
		t.Errorf("LoadAll() malformed = %d, want 1", len(malformed))
	}

	// The malformed file is skipped, never deleted.
	if _, err := os.Stat(badPath); err != nil {
		t.Error("malformed file must survive LoadAll")
	}
}

func TestStore_LoadAllRejectsIDMismatch(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	p := testProfile("Misfiled")
	if err := store.Save(p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Rename the file so the embedded id no longer matches.
	misnamed := filepath.Join(dir, GenerateID()+".json")
	if err := os.Rename(filepath.Join(dir, p.ID+".json"), misnamed); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	profiles, malformed, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("LoadAll() accepted a misfiled record")
	}
	if len(malformed) != 1 {
		t.Errorf("LoadAll() malformed = %d, want 1", len(malformed))
	}
}

func TestStore_DeleteMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := store.Delete(GenerateID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
