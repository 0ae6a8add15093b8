package audio

import (
	"encoding/binary"
	"io"
)

// WAVHeader is the 44-byte RIFF header for mono 16-bit PCM.
type WAVHeader struct {
	// RIFF chunk
	ChunkID   [4]byte
	ChunkSize uint32
	Format    [4]byte

	// fmt subchunk
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	// data subchunk
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// NewWAVHeader builds a header for pcmLen bytes of mono 16-bit PCM at the
// given sample rate.
func NewWAVHeader(pcmLen, sampleRate uint32) WAVHeader {
	h := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   1,
		SampleRate:    sampleRate,
		ByteRate:      sampleRate * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: pcmLen,
	}
	h.ChunkSize = 36 + h.Subchunk2Size
	return h
}

func (h *WAVHeader) Write(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, h)
}
