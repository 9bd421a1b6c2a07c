// Package audio converts between the PCM shapes the inference backends
// consume and the container formats hosts hand us: WAV for synthesis
// output, Ogg Opus for compressed transcription input.
package audio

import "encoding/binary"

// WAVHeaderSize is the size of the RIFF/fmt/data header this package
// writes, in bytes.
const WAVHeaderSize = 44

// PCM16ToWAV wraps raw 16-bit little-endian PCM bytes in a WAV
// container.
func PCM16ToWAV(pcm []byte, sampleRate, channels int) []byte {
	out := make([]byte, WAVHeaderSize+len(pcm))
	writeWAVHeader(out, len(pcm), sampleRate, channels)
	copy(out[WAVHeaderSize:], pcm)
	return out
}

// Int16ToWAV encodes int16 samples as a WAV file.
func Int16ToWAV(samples []int16, sampleRate, channels int) []byte {
	dataLen := len(samples) * 2
	out := make([]byte, WAVHeaderSize+dataLen)
	writeWAVHeader(out, dataLen, sampleRate, channels)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[WAVHeaderSize+i*2:], uint16(s))
	}
	return out
}

// Float32ToWAV clamps float32 samples to [-1, 1], quantizes them to
// 16-bit PCM, and encodes the result as a WAV file.
func Float32ToWAV(samples []float32, sampleRate, channels int) []byte {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm[i] = int16(s * 32767)
	}
	return Int16ToWAV(pcm, sampleRate, channels)
}

func writeWAVHeader(buf []byte, dataLen, sampleRate, channels int) {
	byteRate := sampleRate * channels * 2
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:], uint16(channels*2)) // block align
	binary.LittleEndian.PutUint16(buf[34:], 16)                 // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))
}
