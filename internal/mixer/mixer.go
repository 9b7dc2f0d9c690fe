// Package mixer wraps the external transcoding process used by karaoke
// rounds: blending a player's vocal over an attenuated backing segment, and
// concatenating all per-player mixes into the duet's final track.
package mixer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mixer is the narrow interface onto the transcoding process. Both calls are
// synchronous from the caller's point of view; callers run them off the
// message path and feed the typed result back into the owning game.
type Mixer interface {
	// Mix blends backing (attenuated to 20%) with vocal (full volume) into
	// output. Paths are relative to the karaoke directory; output lands under
	// its output/ subdirectory.
	Mix(ctx context.Context, backing, vocal, output string) error
	// Concat joins the given output files sequentially (not overlaid) into
	// output.
	Concat(ctx context.Context, inputs []string, output string) error
}

// MixFilter is the exact filter graph for the per-player blend: backing at
// 0.2, vocal at 1.0, duration of the longest input, no normalization.
func MixFilter() string {
	return "[0]volume=0.2[a0];[1]volume=1[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0"
}

// ConcatFilter builds the filter graph joining n inputs at equal volume.
func ConcatFilter(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "[%d:a]volume=1[a%d]", i, i)
	}
	b.WriteByte(';')
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "[a%d]", i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=0:a=1[out]", n)
	return b.String()
}

// FFmpeg shells out to an ffmpeg binary.
type FFmpeg struct {
	// Dir is the karaoke upload directory; mixed files land in Dir/output.
	Dir string
	// Bin is the ffmpeg binary, "ffmpeg" by default.
	Bin string

	Log *logrus.Logger
}

// NewFFmpegFromEnv reads KARAOKE_DIR (default "uploads/karaoke") and
// FFMPEG_BIN (default "ffmpeg").
func NewFFmpegFromEnv(log *logrus.Logger) *FFmpeg {
	dir := os.Getenv("KARAOKE_DIR")
	if dir == "" {
		dir = "uploads/karaoke"
	}
	bin := os.Getenv("FFMPEG_BIN")
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{Dir: dir, Bin: bin, Log: log}
}

// OutputDir is where mixed and concatenated files are written.
func (f *FFmpeg) OutputDir() string {
	return filepath.Join(f.Dir, "output")
}

func (f *FFmpeg) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.Bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", f.Bin, err, string(out))
	}
	return nil
}

// Mix implements Mixer.
func (f *FFmpeg) Mix(ctx context.Context, backing, vocal, output string) error {
	if err := os.MkdirAll(f.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	args := []string{
		"-y",
		"-i", filepath.Join(f.Dir, backing),
		"-i", filepath.Join(f.Dir, vocal),
		"-filter_complex", MixFilter(),
		filepath.Join(f.OutputDir(), output),
	}
	return f.run(ctx, args)
}

// Concat implements Mixer.
func (f *FFmpeg) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}
	if err := os.MkdirAll(f.OutputDir(), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	args := []string{"-y"}
	for _, in := range inputs {
		args = append(args, "-i", filepath.Join(f.OutputDir(), in))
	}
	args = append(args,
		"-filter_complex", ConcatFilter(len(inputs)),
		"-map", "[out]",
		filepath.Join(f.OutputDir(), output),
	)
	return f.run(ctx, args)
}
