// Package segment persists suggestion tables as byte-bounded JSON chunk
// files with a per-language manifest, and reads them back.
package segment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// arrayOverhead is the size of the surrounding "[" and "]".
const arrayOverhead = 2

// Encode renders one entry as compact JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding entry: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Pack groups encoded entries into chunks whose JSON array encoding stays
// within maxBytes. Entries are never split; an entry larger than maxBytes
// gets a chunk of its own.
func Pack(entries [][]byte, maxBytes int) [][][]byte {
	var chunks [][][]byte
	var cur [][]byte
	size := arrayOverhead

	for _, e := range entries {
		n := len(e)
		if len(cur) > 0 {
			n++ // comma
		}
		if len(cur) > 0 && size+n > maxBytes {
			chunks = append(chunks, cur)
			cur = nil
			size = arrayOverhead
			n = len(e)
		}
		cur = append(cur, e)
		size += n
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}
	return chunks
}

// ChunkSize is the encoded size of a chunk.
func ChunkSize(chunk [][]byte) int {
	if len(chunk) == 0 {
		return arrayOverhead
	}
	n := arrayOverhead + len(chunk) - 1
	for _, e := range chunk {
		n += len(e)
	}
	return n
}

// ChunkName is the file name of chunk i of section.
func ChunkName(section string, i int) string {
	return fmt.Sprintf("%s.%d.json", section, i)
}
