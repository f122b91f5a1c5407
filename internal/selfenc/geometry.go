package selfenc

// geometry is the single source of truth for how a plaintext length is
// partitioned into chunks, for both the write and read paths.
type geometry struct {
	count       int
	standardLen uint64
	lastLen     uint64
	total       uint64
}

// computeGeometry deterministically partitions total bytes of plaintext.
// It returns a zero-count geometry for any total below the small-content
// threshold (3 * MinChunkSize): such content is stored inline in the data
// map instead of being chunked.
func computeGeometry(total uint64) geometry {
	if total < smallContentThreshold {
		return geometry{total: total}
	}

	if total <= 3*MaxChunkSize {
		standard := total / 3
		return geometry{
			count:       3,
			standardLen: standard,
			lastLen:     total - 2*standard,
			total:       total,
		}
	}

	n := total / MaxChunkSize
	return geometry{
		count:       int(n),
		standardLen: MaxChunkSize,
		lastLen:     total - (n-1)*MaxChunkSize,
		total:       total,
	}
}

// start returns the plaintext offset at which chunk i begins.
func (g geometry) start(i int) uint64 {
	return uint64(i) * g.standardLen
}

// length returns the plaintext length of chunk i.
func (g geometry) length(i int) uint64 {
	if i == g.count-1 {
		return g.lastLen
	}
	return g.standardLen
}

// chunksOverlapping returns the inclusive range of chunk indices whose
// plaintext range intersects [start, end).
func (g geometry) chunksOverlapping(start, end uint64) (first, last int) {
	if g.count == 0 || end <= start {
		return 0, -1
	}
	first = int(start / g.standardLen)
	if first >= g.count {
		first = g.count - 1
	}
	last = int((end - 1) / g.standardLen)
	if last >= g.count {
		last = g.count - 1
	}
	return first, last
}
