package mixer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMixFilter(t *testing.T) {
	assert.Equal(t,
		"[0]volume=0.2[a0];[1]volume=1[a1];[a0][a1]amix=inputs=2:duration=longest:normalize=0",
		MixFilter())
}

func TestConcatFilter(t *testing.T) {
	assert.Equal(t,
		"[0:a]volume=1[a0];[a0]concat=n=1:v=0:a=1[out]",
		ConcatFilter(1))
	assert.Equal(t,
		"[0:a]volume=1[a0];[1:a]volume=1[a1];[a0][a1]concat=n=2:v=0:a=1[out]",
		ConcatFilter(2))
	assert.Equal(t,
		"[0:a]volume=1[a0];[1:a]volume=1[a1];[2:a]volume=1[a2];[a0][a1][a2]concat=n=3:v=0:a=1[out]",
		ConcatFilter(3))
}

func TestNewFFmpegFromEnvDefaults(t *testing.T) {
	t.Setenv("KARAOKE_DIR", "")
	t.Setenv("FFMPEG_BIN", "")
	f := NewFFmpegFromEnv(logrus.New())
	assert.Equal(t, "uploads/karaoke", f.Dir)
	assert.Equal(t, "ffmpeg", f.Bin)
	assert.Equal(t, filepath.Join("uploads", "karaoke", "output"), f.OutputDir())
}

func TestNewFFmpegFromEnvOverrides(t *testing.T) {
	t.Setenv("KARAOKE_DIR", "/tmp/karaoke")
	t.Setenv("FFMPEG_BIN", "/usr/local/bin/ffmpeg")
	f := NewFFmpegFromEnv(logrus.New())
	assert.Equal(t, "/tmp/karaoke", f.Dir)
	assert.Equal(t, "/usr/local/bin/ffmpeg", f.Bin)
}

func TestConcatRejectsEmptyInputs(t *testing.T) {
	f := &FFmpeg{Dir: t.TempDir(), Bin: "true", Log: logrus.New()}
	err := f.Concat(context.Background(), nil, "final.mp3")
	require.Error(t, err)
}

// TestMixArgs drives Mix through a shell stand-in for ffmpeg and checks the
// argv it would have been invoked with.
func TestMixArgs(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-ffmpeg")
	argFile := filepath.Join(dir, "argv")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\nprintf '%s\\n' \"$@\" > "+argFile+"\n"), 0o755))

	f := &FFmpeg{Dir: dir, Bin: script, Log: logrus.New()}
	require.NoError(t, f.Mix(context.Background(), "seg/back.mp3", "rec/voc.mp3", "out.mp3"))

	got, err := os.ReadFile(argFile)
	require.NoError(t, err)
	want := "-y\n" +
		"-i\n" + filepath.Join(dir, "seg/back.mp3") + "\n" +
		"-i\n" + filepath.Join(dir, "rec/voc.mp3") + "\n" +
		"-filter_complex\n" + MixFilter() + "\n" +
		filepath.Join(dir, "output", "out.mp3") + "\n"
	assert.Equal(t, want, string(got))

	// The output directory is created even before ffmpeg runs.
	info, err := os.Stat(filepath.Join(dir, "output"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMixReportsProcessFailure(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fake-ffmpeg")
	require.NoError(t, os.WriteFile(script,
		[]byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0o755))

	f := &FFmpeg{Dir: dir, Bin: script, Log: logrus.New()}
	err := f.Mix(context.Background(), "b.mp3", "v.mp3", "out.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
