package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus"
	"github.com/pion/opus/pkg/oggreader"
	"github.com/sirupsen/logrus"
)

// opusFrameBytes bounds one decoded Opus frame: 40ms at 48kHz, int16.
const opusFrameBytes = 1920 * 2

// DecodeOpus decodes an Ogg Opus stream to 16-bit little-endian PCM.
func DecodeOpus(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty opus data")
	}
	ogg, _, err := oggreader.NewWith(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse ogg container: %w", err)
	}

	decoder := opus.NewDecoder()
	var pcm []byte
	frame := make([]byte, opusFrameBytes)
	frames := 0
	for {
		segments, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ogg page: %w", err)
		}
		for _, segment := range segments {
			// Metadata pages precede the audio packets.
			if bytes.HasPrefix(segment, []byte("OpusHead")) || bytes.HasPrefix(segment, []byte("OpusTags")) {
				continue
			}
			if _, _, err := decoder.Decode(segment, frame); err != nil {
				return nil, fmt.Errorf("decode opus frame: %w", err)
			}
			pcm = append(pcm, frame...)
			frames++
		}
	}
	logrus.WithFields(logrus.Fields{
		"function": "DecodeOpus",
		"frames":   frames,
		"bytes":    len(pcm),
	}).Debug("Decoded opus audio")
	return pcm, nil
}
