// ABOUTME: Binary framing for audio chunk batches
// ABOUTME: Encodes and decodes the length-prefixed batch wire format
package protocol

import (
	"encoding/binary"
	"fmt"
)

// BinaryAudioBatch is the type byte for audio chunk batch frames
const BinaryAudioBatch = 0x00

// EncodeBatch packs encoded audio chunks into one binary frame.
// Layout: type byte, chunk count byte, then per chunk a big-endian
// uint32 length followed by the payload.
func EncodeBatch(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 || len(chunks) > 255 {
		return nil, fmt.Errorf("invalid batch size: %d", len(chunks))
	}

	size := 2
	for _, c := range chunks {
		size += 4 + len(c)
	}

	frame := make([]byte, 0, size)
	frame = append(frame, BinaryAudioBatch, byte(len(chunks)))
	for _, c := range chunks {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(c)))
		frame = append(frame, lenBuf[:]...)
		frame = append(frame, c...)
	}

	return frame, nil
}

// DecodeBatch unpacks a binary audio frame into its chunks
func DecodeBatch(frame []byte) ([][]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("batch frame too short: %d bytes", len(frame))
	}
	if frame[0] != BinaryAudioBatch {
		return nil, fmt.Errorf("unknown binary message type: %d", frame[0])
	}

	count := int(frame[1])
	chunks := make([][]byte, 0, count)
	rest := frame[2:]

	for i := 0; i < count; i++ {
		if len(rest) < 4 {
			return nil, fmt.Errorf("truncated batch: missing length for chunk %d", i)
		}
		n := int(binary.BigEndian.Uint32(rest[:4]))
		rest = rest[4:]
		if len(rest) < n {
			return nil, fmt.Errorf("truncated batch: chunk %d wants %d bytes, have %d", i, n, len(rest))
		}
		chunks = append(chunks, rest[:n:n])
		rest = rest[n:]
	}

	return chunks, nil
}
