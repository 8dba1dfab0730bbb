// Package codec holds the in-process decoders and the chain that picks
// between them and the ffmpeg subprocess.
package codec

import (
	"bytes"

	"github.com/dhowden/tag"
)

// Container names returned by Sniff.
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatM4A  = "m4a"
	FormatFLAC = "flac"
	FormatOGG  = "ogg"
	FormatDSF  = "dsf"
)

// Sniff identifies the container from its leading bytes. It returns "" when
// nothing matches.
func Sniff(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return FormatWAV
	}
	if len(data) >= 11 {
		if _, ft, err := tag.Identify(bytes.NewReader(data)); err == nil {
			switch ft {
			case tag.MP3:
				return FormatMP3
			case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
				return FormatM4A
			case tag.FLAC:
				return FormatFLAC
			case tag.OGG:
				return FormatOGG
			case tag.DSF:
				return FormatDSF
			}
		}
	}
	// bare MPEG audio frame sync, no ID3 tag
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}
	return ""
}
