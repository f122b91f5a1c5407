package selfenc

import (
	"encoding/binary"
	"fmt"
)

// ChunkDetails records everything needed to fetch, verify and decode one chunk.
type ChunkDetails struct {
	ChunkIndex uint32
	PreHash    [HashSize]byte
	Hash       [HashSize]byte
	SourceSize uint64
}

// mapKind discriminates the three DataMap cases.
type mapKind int

const (
	mapKindNone mapKind = iota
	mapKindContent
	mapKindChunks
)

// DataMap is the small, serialisable record identifying the chunks (or
// holding small inline content) needed to reconstruct the plaintext. It is
// an immutable value once returned by Close.
type DataMap struct {
	kind    mapKind
	content []byte
	chunks  []ChunkDetails
}

// EmptyDataMap returns the DataMap for zero-length content.
func EmptyDataMap() DataMap {
	return DataMap{kind: mapKindNone}
}

// ContentDataMap returns the DataMap holding the entire plaintext inline.
// Callers must only use this for content shorter than 3*MinChunkSize.
func ContentDataMap(content []byte) DataMap {
	cp := append([]byte(nil), content...)
	return DataMap{kind: mapKindContent, content: cp}
}

// ChunksDataMap returns the normal-case DataMap for three or more chunks,
// ordered by ChunkIndex.
func ChunksDataMap(chunks []ChunkDetails) DataMap {
	cp := append([]ChunkDetails(nil), chunks...)
	return DataMap{kind: mapKindChunks, chunks: cp}
}

// IsNone reports whether the map describes zero-length content.
func (m DataMap) IsNone() bool { return m.kind == mapKindNone }

// IsContent reports whether the map holds inline content.
func (m DataMap) IsContent() bool { return m.kind == mapKindContent }

// IsChunks reports whether the map describes a chunked file.
func (m DataMap) IsChunks() bool { return m.kind == mapKindChunks }

// Content returns the inline content and true, if this map is the Content case.
func (m DataMap) Content() ([]byte, bool) {
	if m.kind != mapKindContent {
		return nil, false
	}
	return m.content, true
}

// Chunks returns the ordered chunk list and true, if this map is the Chunks case.
func (m DataMap) Chunks() ([]ChunkDetails, bool) {
	if m.kind != mapKindChunks {
		return nil, false
	}
	return m.chunks, true
}

// Len returns the total plaintext length the map describes.
func (m DataMap) Len() uint64 {
	switch m.kind {
	case mapKindNone:
		return 0
	case mapKindContent:
		return uint64(len(m.content))
	default:
		var total uint64
		for _, c := range m.chunks {
			total += c.SourceSize
		}
		return total
	}
}

// Encoding tags, kept small and stable since storage names depend on the
// hash primitive but the data map's own wire format is this library's to choose.
const (
	tagNone    byte = 0
	tagContent byte = 1
	tagChunks  byte = 2
)

// Marshal encodes the data map as: 1 tag byte, then for Content a u64 LE
// length prefix followed by the raw bytes, or for Chunks a u32 LE count
// prefix followed by one (chunk_index u32 LE, pre_hash 32B, hash 32B,
// source_size u64 LE) record per chunk, per section 6 of the design.
func (m DataMap) Marshal() []byte {
	switch m.kind {
	case mapKindNone:
		return []byte{tagNone}
	case mapKindContent:
		buf := make([]byte, 1+8+len(m.content))
		buf[0] = tagContent
		binary.LittleEndian.PutUint64(buf[1:9], uint64(len(m.content)))
		copy(buf[9:], m.content)
		return buf
	default:
		const recordSize = 4 + HashSize + HashSize + 8
		buf := make([]byte, 1+4+recordSize*len(m.chunks))
		buf[0] = tagChunks
		binary.LittleEndian.PutUint32(buf[1:5], uint32(len(m.chunks)))
		off := 5
		for _, c := range m.chunks {
			binary.LittleEndian.PutUint32(buf[off:off+4], c.ChunkIndex)
			off += 4
			copy(buf[off:off+HashSize], c.PreHash[:])
			off += HashSize
			copy(buf[off:off+HashSize], c.Hash[:])
			off += HashSize
			binary.LittleEndian.PutUint64(buf[off:off+8], c.SourceSize)
			off += 8
		}
		return buf
	}
}

// UnmarshalDataMap decodes bytes produced by DataMap.Marshal.
func UnmarshalDataMap(data []byte) (DataMap, error) {
	if len(data) < 1 {
		return DataMap{}, fmt.Errorf("selfenc: empty data map")
	}
	switch data[0] {
	case tagNone:
		return EmptyDataMap(), nil
	case tagContent:
		if len(data) < 9 {
			return DataMap{}, fmt.Errorf("selfenc: truncated content data map")
		}
		n := binary.LittleEndian.Uint64(data[1:9])
		if uint64(len(data)-9) < n {
			return DataMap{}, fmt.Errorf("selfenc: truncated content data map body")
		}
		return ContentDataMap(data[9 : 9+n]), nil
	case tagChunks:
		if len(data) < 5 {
			return DataMap{}, fmt.Errorf("selfenc: truncated chunks data map")
		}
		count := binary.LittleEndian.Uint32(data[1:5])
		const recordSize = 4 + HashSize + HashSize + 8
		off := 5
		chunks := make([]ChunkDetails, 0, count)
		for i := uint32(0); i < count; i++ {
			if len(data) < off+recordSize {
				return DataMap{}, fmt.Errorf("selfenc: truncated chunk record %d", i)
			}
			var c ChunkDetails
			c.ChunkIndex = binary.LittleEndian.Uint32(data[off : off+4])
			off += 4
			copy(c.PreHash[:], data[off:off+HashSize])
			off += HashSize
			copy(c.Hash[:], data[off:off+HashSize])
			off += HashSize
			c.SourceSize = binary.LittleEndian.Uint64(data[off : off+8])
			off += 8
			chunks = append(chunks, c)
		}
		return ChunksDataMap(chunks), nil
	default:
		return DataMap{}, fmt.Errorf("selfenc: unknown data map tag %d", data[0])
	}
}
