package transcode

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Format is a container format identified by signature bytes. The filename
// extension is a hint only; playback decisions are made from the sniffed
// format, never from the suffix.
type Format int

const (
	FormatUnknown Format = iota
	FormatMP4
	FormatWebM // EBML header, covers WebM and Matroska
	FormatAVI
	FormatRIFF // RIFF form types other than AVI (WAV and friends)
	FormatQuickTime
)

// sniffLen is how many leading bytes are needed to classify a container.
const sniffLen = 16

var ebmlSignature = []byte{0x1a, 0x45, 0xdf, 0xa3}

// String returns a short name for the format
func (f Format) String() string {
	switch f {
	case FormatMP4:
		return "mp4"
	case FormatWebM:
		return "webm"
	case FormatAVI:
		return "avi"
	case FormatRIFF:
		return "riff"
	case FormatQuickTime:
		return "quicktime"
	default:
		return "unknown"
	}
}

// NeedsConversion reports whether the format requires transcoding before it
// can be served for browser playback. Unknown formats are served unchanged;
// only containers positively identified as unsuitable trigger a conversion.
func (f Format) NeedsConversion() bool {
	switch f {
	case FormatWebM, FormatAVI, FormatRIFF, FormatQuickTime:
		return true
	default:
		return false
	}
}

// DetectFormat classifies a container from its leading bytes
func DetectFormat(header []byte) Format {
	if len(header) < 12 {
		return FormatUnknown
	}

	// EBML: WebM and Matroska share the 1a45dfa3 signature
	if bytes.HasPrefix(header, ebmlSignature) {
		return FormatWebM
	}

	// Any RIFF container needs conversion before playback; AVI is
	// distinguished from the rest only for logging.
	if bytes.HasPrefix(header, []byte("RIFF")) {
		if bytes.Equal(header[8:12], []byte("AVI ")) {
			return FormatAVI
		}
		return FormatRIFF
	}

	// ISO base media: size (4 bytes) then "ftyp" then the major brand
	if bytes.Equal(header[4:8], []byte("ftyp")) {
		if bytes.HasPrefix(header[8:12], []byte("qt")) {
			return FormatQuickTime
		}
		return FormatMP4
	}

	return FormatUnknown
}

// SniffFile classifies the container format of the file at path by reading
// its signature bytes.
func SniffFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("failed to open file for sniffing: %w", err)
	}
	defer f.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}

	return DetectFormat(header[:n]), nil
}
