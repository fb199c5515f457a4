// ABOUTME: RIFF/WAVE header construction
// ABOUTME: Builds streaming-friendly WAV headers for captured PCM
package capture

import "encoding/binary"

// streamingSize is the RIFF size sentinel for streams of unknown length
const streamingSize = 0xFFFFFFFF

// streamingWAVHeader builds a 44-byte PCM WAV header with the size fields
// set to the streaming sentinel.
func streamingWAVHeader(channels, sampleRate, bitDepth int) []byte {
	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8

	h := make([]byte, 44)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], streamingSize)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(h[20:22], 1)  // PCM format tag
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitDepth))

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], streamingSize)

	return h
}
