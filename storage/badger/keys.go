package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/homily/core"
)

// Key prefixes for different data types
const (
	statePrefix      = "pstate"
	itemPrefix       = "sitem"
	itemStatusPrefix = "sitems"
	chunkPrefix      = "schunk"
	vectorPrefix     = "vec"
)

// makeStateKey generates a key for an item's pipeline state.
func makeStateKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", statePrefix, itemID))
}

// makeItemKey generates a key for an item record.
func makeItemKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", itemPrefix, itemID))
}

// makeItemStatusKey generates a composite key for the status index.
// Format: prefix:status:itemID
func makeItemStatusKey(status core.Status, itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", itemStatusPrefix, status, itemID))
}

// makePartialItemStatusKey generates a partial key for status queries.
func makePartialItemStatusKey(status core.Status) []byte {
	return []byte(fmt.Sprintf("%s:%s:", itemStatusPrefix, status))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:itemID:index (big endian so chunks sort by index)
func makeChunkKey(itemID string, index int) []byte {
	prefix := makePartialChunkKey(itemID)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(index))
	return buf
}

// makePartialChunkKey generates a partial key for all chunks of an item.
func makePartialChunkKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, itemID))
}

// makeVectorKey generates a key for a vector in a namespace.
// The vector ID is hashed so namespace scans stay fixed-width.
// Format: prefix:namespace:hash
func makeVectorKey(namespace, vectorID string) []byte {
	prefix := makePartialVectorKey(namespace)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(core.IDFromContent(namespace+"/"+vectorID)))
	return buf
}

// makePartialVectorKey generates a partial key for a namespace.
func makePartialVectorKey(namespace string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorPrefix, namespace))
}
