package voice

import "sync"

// Buffer accumulates PCM16LE mono audio up to a fixed number of samples.
// Audio past the limit is dropped.
type Buffer struct {
	mu       sync.Mutex
	pcm      []byte
	maxBytes int
}

func NewBuffer(maxSamples int) *Buffer {
	if maxSamples <= 0 {
		maxSamples = 1
	}
	return &Buffer{maxBytes: 2 * maxSamples}
}

// Append copies as much of pcm16le as fits and reports whether the buffer is now full.
// A trailing odd byte is ignored.
func (b *Buffer) Append(pcm16le []byte) (full bool) {
	if len(pcm16le)%2 == 1 {
		pcm16le = pcm16le[:len(pcm16le)-1]
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.maxBytes - len(b.pcm)
	if room > len(pcm16le) {
		room = len(pcm16le)
	}
	if room > 0 {
		b.pcm = append(b.pcm, pcm16le[:room]...)
	}
	return len(b.pcm) >= b.maxBytes
}

// Samples returns the number of buffered samples.
func (b *Buffer) Samples() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pcm) / 2
}

// Drain returns the buffered audio and empties the buffer.
func (b *Buffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pcm
	b.pcm = nil
	return out
}
