package sample

// Buffer is the ordered, append-only store of samples for one session.
// It is not safe for concurrent use; acquisition and export never overlap.
type Buffer struct {
	samples []Sample
}

// NewBuffer returns a Buffer with room for capacity samples.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{samples: make([]Sample, 0, capacity)}
}

// Append adds s after every previously appended sample.
func (b *Buffer) Append(s Sample) {
	b.samples = append(b.samples, s)
}

// Len returns the number of samples held.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// CountByLabel returns how many held samples carry each label.
func (b *Buffer) CountByLabel() map[Label]int {
	counts := make(map[Label]int)
	for _, s := range b.samples {
		counts[s.Label]++
	}
	return counts
}

// DrainAll hands the full ordered sequence to the caller and leaves
// the buffer empty.
func (b *Buffer) DrainAll() []Sample {
	out := b.samples
	b.samples = nil
	return out
}
