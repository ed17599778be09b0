// Package block splits a payload into fixed-size source blocks, zero-padding
// the final block, and reassembles blocks back into a payload with padding
// stripped.
package block

import (
	"fmt"

	"github.com/tightbeam/tightbeam/tberr"
)

// Partition splits payload into ceil(len(payload)/blockSize) fixed-size
// blocks. The last block is zero-padded. It returns the blocks and the
// original (unpadded) payload length.
func Partition(payload []byte, blockSize int) (blocks [][]byte, origLen int, err error) {
	if blockSize <= 0 {
		return nil, 0, fmt.Errorf("block: partition: %w: block_size must be > 0, got %d", tberr.ErrInvalidMetadata, blockSize)
	}

	origLen = len(payload)
	k := Count(origLen, blockSize)
	if k == 0 {
		return nil, origLen, nil
	}

	blocks = make([][]byte, k)
	for i := 0; i < k; i++ {
		b := make([]byte, blockSize)
		start := i * blockSize
		end := start + blockSize
		if end > origLen {
			end = origLen
		}
		copy(b, payload[start:end])
		blocks[i] = b
	}
	return blocks, origLen, nil
}

// Count returns k = ceil(origLen / blockSize), the number of source blocks
// a payload of origLen bytes splits into under blockSize.
func Count(origLen, blockSize int) int {
	if blockSize <= 0 || origLen <= 0 {
		return 0
	}
	return (origLen + blockSize - 1) / blockSize
}

// Reassemble concatenates blocks in index order and truncates the result to
// origLen bytes, stripping the zero padding Partition applied to the last
// block.
func Reassemble(blocks [][]byte, origLen int) []byte {
	out := make([]byte, 0, len(blocks)*len(firstOrEmpty(blocks)))
	for _, b := range blocks {
		out = append(out, b...)
	}
	if origLen > len(out) {
		origLen = len(out)
	}
	return out[:origLen]
}

func firstOrEmpty(blocks [][]byte) []byte {
	if len(blocks) == 0 {
		return nil
	}
	return blocks[0]
}
