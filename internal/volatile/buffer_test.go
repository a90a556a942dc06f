package volatile

import (
	"errors"
	"sync"
	"testing"
)

func declareSpectrum(t *testing.T) *Buffer {
	t.Helper()
	b := NewBuffer()
	if err := b.DeclareSlot(SlotSpectrumIntensities, ProducerSpectro); err != nil {
		t.Fatalf("DeclareSlot() error = %v", err)
	}
	return b
}

func TestBuffer_EmptySlotReturnsSentinel(t *testing.T) {
	b := declareSpectrum(t)

	samples, ok := b.Get(SlotSpectrumIntensities)
	if ok {
		t.Error("expected ok=false for empty slot")
	}
	if samples != nil {
		t.Errorf("expected nil samples for empty slot, got %v", samples)
	}
}

func TestBuffer_UndeclaredSlot(t *testing.T) {
	b := NewBuffer()

	if _, ok := b.Get("nonexistent"); ok {
		t.Error("expected ok=false for undeclared slot")
	}

	err := b.Set("nonexistent", ProducerSpectro, []float64{1})
	if !errors.Is(err, ErrSlotNotDeclared) {
		t.Errorf("Set() error = %v, want ErrSlotNotDeclared", err)
	}
}

func TestBuffer_DuplicateDeclaration(t *testing.T) {
	b := declareSpectrum(t)

	err := b.DeclareSlot(SlotSpectrumIntensities, ProducerSweep)
	if !errors.Is(err, ErrSlotDeclared) {
		t.Errorf("DeclareSlot() error = %v, want ErrSlotDeclared", err)
	}
}

func TestBuffer_RejectsForeignProducer(t *testing.T) {
	b := declareSpectrum(t)

	err := b.Set(SlotSpectrumIntensities, ProducerSweep, []float64{0.1})
	if !errors.Is(err, ErrNotProducer) {
		t.Errorf("Set() error = %v, want ErrNotProducer", err)
	}

	if _, ok := b.Get(SlotSpectrumIntensities); ok {
		t.Error("rejected write must not populate the slot")
	}
}

func TestBuffer_OverwriteVisibleToReaders(t *testing.T) {
	b := declareSpectrum(t)

	if err := b.Set(SlotSpectrumIntensities, ProducerSpectro, []float64{0.1, 0.9, 0.2}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	samples, ok := b.Get(SlotSpectrumIntensities)
	if !ok {
		t.Fatal("expected populated slot")
	}

	peak := 0
	for i, v := range samples {
		if v > samples[peak] {
			peak = i
		}
	}
	if peak != 1 {
		t.Errorf("peak index = %d, want 1", peak)
	}

	if err := b.Set(SlotSpectrumIntensities, ProducerSpectro, []float64{0.4, 0.1, 0.1}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	samples, _ = b.Get(SlotSpectrumIntensities)
	if samples[0] != 0.4 {
		t.Errorf("reader sees stale value %v after overwrite", samples[0])
	}
}

func TestBuffer_SnapshotIsolation(t *testing.T) {
	b := declareSpectrum(t)

	src := []float64{1, 2, 3}
	if err := b.Set(SlotSpectrumIntensities, ProducerSpectro, src); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Mutating the caller's slice after Set must not leak in.
	src[0] = 99
	got, _ := b.Get(SlotSpectrumIntensities)
	if got[0] != 1 {
		t.Errorf("slot shares storage with producer slice: got[0] = %v", got[0])
	}

	// Mutating a returned snapshot must not affect the next read.
	got[1] = 99
	again, _ := b.Get(SlotSpectrumIntensities)
	if again[1] != 2 {
		t.Errorf("slot shares storage with reader slice: again[1] = %v", again[1])
	}
}

func TestBuffer_ConcurrentSetGet(t *testing.T) {
	b := declareSpectrum(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			val := float64(n)
			_ = b.Set(SlotSpectrumIntensities, ProducerSpectro, []float64{val, val})
		}(i)
		go func() {
			defer wg.Done()
			samples, ok := b.Get(SlotSpectrumIntensities)
			if ok && len(samples) == 2 && samples[0] != samples[1] {
				t.Error("observed torn write")
			}
		}()
	}
	wg.Wait()
}

func TestBuffer_ProducerAndSlots(t *testing.T) {
	b := declareSpectrum(t)
	if err := b.DeclareSlot(SlotSweepLevels, ProducerSweep); err != nil {
		t.Fatalf("DeclareSlot() error = %v", err)
	}

	producer, ok := b.Producer(SlotSweepLevels)
	if !ok || producer != ProducerSweep {
		t.Errorf("Producer() = %q, %v; want %q, true", producer, ok, ProducerSweep)
	}

	if got := len(b.Slots()); got != 2 {
		t.Errorf("Slots() returned %d names, want 2", got)
	}
}
