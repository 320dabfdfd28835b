package sample

import "testing"

func TestBufferKeepsArrivalOrder(t *testing.T) {
	b := NewBuffer(2)
	for i := 0; i < 5; i++ {
		var s Sample
		s.Channels[0] = float64(i)
		b.Append(s)
	}

	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}

	got := b.DrainAll()
	for i, s := range got {
		if s.Channels[0] != float64(i) {
			t.Errorf("sample %d has channel 0 = %v, want %d", i, s.Channels[0], i)
		}
	}
}

func TestBufferDrainAllEmpties(t *testing.T) {
	b := NewBuffer(0)
	b.Append(Sample{Label: Flex})

	if got := b.DrainAll(); len(got) != 1 {
		t.Fatalf("first DrainAll returned %d samples, want 1", len(got))
	}
	if b.Len() != 0 {
		t.Errorf("Len() after DrainAll = %d, want 0", b.Len())
	}
	if got := b.DrainAll(); len(got) != 0 {
		t.Errorf("second DrainAll returned %d samples, want 0", len(got))
	}
}

func TestBufferCountByLabel(t *testing.T) {
	b := NewBuffer(-1)
	b.Append(Sample{Label: Rest})
	b.Append(Sample{Label: Flex})
	b.Append(Sample{Label: Flex})

	counts := b.CountByLabel()
	if counts[Rest] != 1 || counts[Flex] != 2 {
		t.Errorf("CountByLabel() = %v, want rest=1 flex=2", counts)
	}
}
