package inrack

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// AudioFormat describes interleaved float32 audio.
type AudioFormat struct {
	Channels   int
	SampleRate int
}

// Wav encodes interleaved float32 audio as a .wav file, either as 16-bit
// PCM or as IEEE float.
func Wav(buffer []float32, format AudioFormat, pcm16 bool) ([]byte, error) {
	if format.Channels <= 0 || format.SampleRate <= 0 {
		return nil, errors.Errorf("invalid audio format %+v", format)
	}
	buf := new(bytes.Buffer)
	wavHeader(len(buffer), format, pcm16, buf)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, errors.Wrap(err, "Wav failed")
	}
	return buf.Bytes(), nil
}

// Raw encodes interleaved float32 audio without a header.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := rawToBuffer(buffer, pcm16, buf); err != nil {
		return nil, errors.Wrap(err, "Raw failed")
	}
	return buf.Bytes(), nil
}

// Interleave writes the channels of planar into dst, frame by frame, and
// returns the extended slice.
func Interleave(dst []float32, planar [][]float32, frames int) []float32 {
	for i := 0; i < frames; i++ {
		for _, ch := range planar {
			dst = append(dst, ch[i])
		}
	}
	return dst
}

func rawToBuffer(data []float32, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data))
		for i, v := range data {
			int16data[i] = int16(clamp(int(v*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	return errors.Wrap(err, "could not binary write data to binary buffer")
}

// wavHeader writes the RIFF header for bufferLength interleaved samples.
// Float output needs the extended fmt chunk and a fact chunk.
func wavHeader(bufferLength int, format AudioFormat, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	numChannels := format.Channels
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(format.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(format.SampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))                   // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                             // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength/numChannels)) // frames
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clamp(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
