package badger

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Key prefixes for different data types
const (
	artifactCurrentKey     = "artcur"
	artifactGenerationSeq  = "artgenseq"
	artifactManifestPrefix = "artman"
	artifactIndexPrefix    = "artidx"
	artifactRecordPrefix   = "artrec"
)

// generationPrefixes lists every prefix that holds per-generation data.
var generationPrefixes = []string{
	artifactManifestPrefix,
	artifactIndexPrefix,
	artifactRecordPrefix,
}

// makeGenerationKey generates a key scoped to one artifact generation.
// Format: prefix:generation
func makeGenerationKey(prefix string, gen uint64) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], gen)
	return buf
}

// makeRecordKey generates a key for the record at an index position.
// Format: prefix:generation:position
func makeRecordKey(gen uint64, pos int) []byte {
	partial := makeGenerationKey(artifactRecordPrefix, gen)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(pos))
	return buf
}

// parseRecordPosition extracts the index position from a record key.
func parseRecordPosition(key []byte) (int, error) {
	if len(key) < 8 {
		return 0, fmt.Errorf("record key too short: %d bytes", len(key))
	}
	return int(binary.BigEndian.Uint64(key[len(key)-8:])), nil
}

// parseGeneration extracts the generation from a key built by
// makeGenerationKey or makeRecordKey with the given prefix.
func parseGeneration(prefix string, key []byte) (uint64, error) {
	start := len(prefix) + 1
	if len(key) < start+8 {
		return 0, fmt.Errorf("key %q too short for a generation", key)
	}
	return binary.BigEndian.Uint64(key[start : start+8]), nil
}

func encodeGeneration(gen uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gen)
	return buf
}

func decodeGeneration(val []byte) (uint64, error) {
	if len(val) != 8 {
		return 0, errors.New("malformed generation pointer")
	}
	return binary.BigEndian.Uint64(val), nil
}
