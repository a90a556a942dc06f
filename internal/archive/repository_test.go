package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/elworkbench/workbench-core/internal/infrastructure/database"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewSQLiteRepository(db.DB)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return repo
}

func testSweep(id string) *SweepRecord {
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &SweepRecord{
		ID:           id,
		ProfileID:    "a2b93f60-1111-4222-8333-444455556666",
		ProfileName:  "perovskite batch 7",
		DeviceID:     "px-3",
		Channel:      "a",
		VoltageSweep: true,
		Start:        -1,
		End:          1,
		Step:         0.5,
		Limit:        0.01,
		SettleDelay:  50 * time.Millisecond,
		StartedAt:    started,
		CompletedAt:  started.Add(2 * time.Second),
		Points: []Point{
			{Level: -1, Voltage: -0.998, Current: -0.001},
			{Level: -0.5, Voltage: -0.5, Current: -0.0005},
			{Level: 0, Voltage: 0.0001, Current: 0},
			{Level: 0.5, Voltage: 0.499, Current: 0.0005},
			{Level: 1, Voltage: 1.001, Current: 0.001},
		},
	}
}

func TestSaveAndGetSweep(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	want := testSweep("sweep-1")
	if err := repo.SaveSweep(ctx, want); err != nil {
		t.Fatalf("SaveSweep() error = %v", err)
	}

	got, err := repo.GetSweep(ctx, "sweep-1")
	if err != nil {
		t.Fatalf("GetSweep() error = %v", err)
	}

	if got.ProfileName != want.ProfileName {
		t.Errorf("ProfileName = %q, want %q", got.ProfileName, want.ProfileName)
	}
	if got.Channel != want.Channel || !got.VoltageSweep {
		t.Errorf("channel/direction = %q/%v, want a/true", got.Channel, got.VoltageSweep)
	}
	if got.SettleDelay != want.SettleDelay {
		t.Errorf("SettleDelay = %v, want %v", got.SettleDelay, want.SettleDelay)
	}
	if !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, want.StartedAt)
	}
	if len(got.Points) != len(want.Points) {
		t.Fatalf("got %d points, want %d", len(got.Points), len(want.Points))
	}
	for i, p := range got.Points {
		if p != want.Points[i] {
			t.Errorf("point %d = %+v, want %+v", i, p, want.Points[i])
		}
	}
}

func TestSaveSweepDuplicate(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveSweep(ctx, testSweep("dup")); err != nil {
		t.Fatalf("SaveSweep() error = %v", err)
	}
	if err := repo.SaveSweep(ctx, testSweep("dup")); !errors.Is(err, ErrSweepExists) {
		t.Errorf("SaveSweep() duplicate error = %v, want ErrSweepExists", err)
	}
}

func TestSaveSweepMissingID(t *testing.T) {
	repo := newTestRepository(t)

	rec := testSweep("")
	if err := repo.SaveSweep(context.Background(), rec); !errors.Is(err, ErrInvalidSweep) {
		t.Errorf("SaveSweep() error = %v, want ErrInvalidSweep", err)
	}
}

func TestGetSweepNotFound(t *testing.T) {
	repo := newTestRepository(t)

	if _, err := repo.GetSweep(context.Background(), "missing"); !errors.Is(err, ErrSweepNotFound) {
		t.Errorf("GetSweep() error = %v, want ErrSweepNotFound", err)
	}
}

func TestListSweeps(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := testSweep("older")
	second := testSweep("newer")
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.CompletedAt = second.StartedAt.Add(time.Second)
	second.ProfileID = "b7c93f60-2222-4333-8444-555566667777"

	for _, rec := range []*SweepRecord{first, second} {
		if err := repo.SaveSweep(ctx, rec); err != nil {
			t.Fatalf("SaveSweep(%s) error = %v", rec.ID, err)
		}
	}

	sweeps, err := repo.ListSweeps(ctx)
	if err != nil {
		t.Fatalf("ListSweeps() error = %v", err)
	}
	if len(sweeps) != 2 {
		t.Fatalf("ListSweeps() returned %d records, want 2", len(sweeps))
	}
	if sweeps[0].ID != "newer" {
		t.Errorf("first listed sweep = %q, want newest first", sweeps[0].ID)
	}
	if sweeps[0].Points != nil {
		t.Error("list results should not include points")
	}

	byProfile, err := repo.ListSweepsByProfile(ctx, first.ProfileID)
	if err != nil {
		t.Fatalf("ListSweepsByProfile() error = %v", err)
	}
	if len(byProfile) != 1 || byProfile[0].ID != "older" {
		t.Errorf("ListSweepsByProfile() = %v, want just the older sweep", byProfile)
	}
}

func TestDeleteSweepCascades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveSweep(ctx, testSweep("victim")); err != nil {
		t.Fatalf("SaveSweep() error = %v", err)
	}
	if err := repo.DeleteSweep(ctx, "victim"); err != nil {
		t.Fatalf("DeleteSweep() error = %v", err)
	}

	if _, err := repo.GetSweep(ctx, "victim"); !errors.Is(err, ErrSweepNotFound) {
		t.Errorf("GetSweep() after delete error = %v, want ErrSweepNotFound", err)
	}

	var remaining int
	err := repo.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sweep_points").Scan(&remaining)
	if err != nil {
		t.Fatalf("counting points: %v", err)
	}
	if remaining != 0 {
		t.Errorf("%d orphaned points after delete, want 0", remaining)
	}

	if err := repo.DeleteSweep(ctx, "victim"); !errors.Is(err, ErrSweepNotFound) {
		t.Errorf("second DeleteSweep() error = %v, want ErrSweepNotFound", err)
	}
}

func TestAbortedSweepRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := testSweep("partial")
	rec.Aborted = true
	rec.Points = rec.Points[:2]

	if err := repo.SaveSweep(ctx, rec); err != nil {
		t.Fatalf("SaveSweep() error = %v", err)
	}

	got, err := repo.GetSweep(ctx, "partial")
	if err != nil {
		t.Fatalf("GetSweep() error = %v", err)
	}
	if !got.Aborted {
		t.Error("Aborted = false, want true")
	}
	if len(got.Points) != 2 {
		t.Errorf("got %d points, want 2", len(got.Points))
	}
}
