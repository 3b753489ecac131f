// Package metadata extracts technical metadata from uploaded media via
// ffprobe. Extraction is best-effort: a missing or failing ffprobe never
// fails an upload, it only leaves the derived fields unset.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// availabilityCheckInterval is how long a prober trusts its cached answer
// about whether its ffprobe binary can be invoked.
const availabilityCheckInterval = 5 * time.Minute

// FFProbeOutput represents the JSON output from ffprobe
type FFProbeOutput struct {
	Format  FFProbeFormat   `json:"format"`
	Streams []FFProbeStream `json:"streams"`
}

type FFProbeFormat struct {
	Filename   string `json:"filename"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type FFProbeStream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Duration  string `json:"duration"`
}

// Prober extracts media metadata using an external ffprobe binary. Each
// prober caches the availability of its own binary, so probers configured
// with different paths never share an answer.
type Prober struct {
	ffprobePath string

	mu        sync.Mutex
	available *bool
	checkedAt time.Time
}

// NewProber creates a prober that invokes the given ffprobe binary
func NewProber(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// ProbeDuration returns the container duration of the media file in seconds.
func (p *Prober) ProbeDuration(ctx context.Context, filePath string) (float64, error) {
	out, err := p.probe(ctx, filePath)
	if err != nil {
		return 0, err
	}

	if out.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe reported no duration for %s", filePath)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe duration %q: %w", out.Format.Duration, err)
	}
	return duration, nil
}

func (p *Prober) probe(ctx context.Context, filePath string) (*FFProbeOutput, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath)

	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe exited with code %d: %s", exitError.ExitCode(), string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe command failed: %w", err)
	}

	var probeOutput FFProbeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	return &probeOutput, nil
}

// IsAvailable reports whether the ffprobe binary can be invoked. The result
// is cached for a few minutes to avoid spawning a process per upload.
func (p *Prober) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.available != nil && time.Since(p.checkedAt) < availabilityCheckInterval {
		return *p.available
	}

	err := exec.Command(p.ffprobePath, "-version").Run()
	available := err == nil
	p.available = &available
	p.checkedAt = time.Now()
	return available
}
