package selfenc

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// sequencer is the engine's working buffer for an open session. It starts
// as a growable in-memory vector and may be promoted, once, to a
// fixed-length memory-mapped buffer once the working length crosses
// MaxInMemorySize. Promotion is one-way; the mapped form cannot be
// truncated, so the encryptor tracks the logical length separately.
type sequencer struct {
	vector    []byte
	mapped    mmap.MMap
	isMmap    bool
	onPromote func()
}

// newSequencer creates an empty vector-backed sequencer.
func newSequencer() *sequencer {
	return newSequencerWithHook(nil)
}

// newSequencerWithHook creates an empty vector-backed sequencer that calls
// onPromote, if non-nil, the moment it promotes to the mapped form.
func newSequencerWithHook(onPromote func()) *sequencer {
	return &sequencer{vector: make([]byte, 0, MaxInMemorySize), onPromote: onPromote}
}

// len returns the vector length, or the fixed mapped length (MaxFileSize)
// once promoted.
func (s *sequencer) len() int {
	if s.isMmap {
		return len(s.mapped)
	}
	return len(s.vector)
}

// init appends content to the sequencer (vector form) or writes it starting
// at offset 0 (mapped form). Intended for use immediately after construction.
func (s *sequencer) init(content []byte) {
	if s.isMmap {
		copy(s.mapped, content)
		return
	}
	s.vector = append(s.vector, content...)
}

// ensure grows the vector form so that index n-1 is addressable, promoting
// to the memory-mapped form first if n crosses MaxInMemorySize. It is a
// no-op on the mapped form, whose length is fixed at MaxFileSize.
func (s *sequencer) ensure(n int) *Error {
	if s.isMmap {
		return nil
	}
	if n > MaxInMemorySize {
		if err := s.createMapping(); err != nil {
			return err
		}
		return nil
	}
	if n > len(s.vector) {
		if n > cap(s.vector) {
			grown := make([]byte, n, n*2)
			copy(grown, s.vector)
			s.vector = grown
		} else {
			s.vector = s.vector[:n]
		}
	}
	return nil
}

// truncate shrinks the vector form. No-op on the mapped form; the encryptor
// must track logical length itself once mapped.
func (s *sequencer) truncate(n int) {
	if s.isMmap {
		return
	}
	if n < len(s.vector) {
		s.vector = s.vector[:n]
	}
}

// slice returns the bytes in [start, start+length), valid only for the
// lifetime of the sequencer (no copy).
func (s *sequencer) slice(start, length int) []byte {
	if s.isMmap {
		return s.mapped[start : start+length]
	}
	return s.vector[start : start+length]
}

// writeAt copies data into the sequencer at the given offset, growing the
// vector form (and promoting to the mapped form, if needed) as needed.
func (s *sequencer) writeAt(offset int, data []byte) *Error {
	if err := s.ensure(offset + len(data)); err != nil {
		return err
	}
	if s.isMmap {
		copy(s.mapped[offset:], data)
		return nil
	}
	copy(s.vector[offset:], data)
	return nil
}

// createMapping promotes a vector-backed sequencer to a fixed MaxFileSize
// memory mapping, copying the current content across. Idempotent. Since Go
// has no portable anonymous-mapping primitive, the mapping is backed by a
// temporary file that is unlinked immediately after being mapped: on POSIX
// systems the mapping and the open descriptor both remain valid after
// unlink, giving the same "disappears with the process" semantics as a
// true anonymous mapping.
func (s *sequencer) createMapping() *Error {
	if s.isMmap {
		return nil
	}

	f, err := os.CreateTemp("", "selfenc-sequencer-*")
	if err != nil {
		return ioErr(err)
	}
	defer f.Close()
	defer os.Remove(f.Name())

	if err := f.Truncate(MaxFileSize); err != nil {
		return ioErr(err)
	}

	m, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		return ioErr(err)
	}

	copy(m, s.vector)
	s.mapped = m
	s.isMmap = true
	s.vector = nil
	if s.onPromote != nil {
		s.onPromote()
	}
	return nil
}

// close releases the mapping, if any.
func (s *sequencer) close() *Error {
	if s.isMmap && s.mapped != nil {
		if err := s.mapped.Unmap(); err != nil {
			return ioErr(err)
		}
	}
	return nil
}
