package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Transcoder converts a media file into a browser-playable MP4. Implemented
// by FFmpegTranscoder in production and by fakes in tests.
type Transcoder interface {
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// FFmpegTranscoder converts media by invoking an external ffmpeg binary
type FFmpegTranscoder struct {
	ffmpegPath string
}

// NewFFmpegTranscoder creates a transcoder that invokes the given ffmpeg binary
func NewFFmpegTranscoder(ffmpegPath string) *FFmpegTranscoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{ffmpegPath: ffmpegPath}
}

// Convert transcodes inputPath into an H.264/AAC MP4 at outputPath. The
// output format is forced so the temporary output path does not need an .mp4
// extension.
func (t *FFmpegTranscoder) Convert(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "23",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("ffmpeg exited with code %d: %s", exitError.ExitCode(), lastLine(stderr.Bytes()))
		}
		return fmt.Errorf("ffmpeg command failed: %w", err)
	}

	return nil
}

// lastLine extracts the final non-empty stderr line, which is where ffmpeg
// puts its actual error message.
func lastLine(out []byte) string {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	if len(lines) == 0 {
		return ""
	}
	return string(bytes.TrimSpace(lines[len(lines)-1]))
}
