package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPlayerBinary = "ffplay"
	DefaultProbeBinary  = "ffprobe"
)

var DefaultPlayerArgs = []string{"-nodisp", "-autoexit", "-loglevel", "error"}

// CommandPlayer plays a file by running an external player and waiting for it to exit.
type CommandPlayer struct {
	Binary string
	Args   []string
}

func NewCommandPlayer(binary string) *CommandPlayer {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultPlayerBinary
	}
	args := []string{}
	if binary == DefaultPlayerBinary {
		args = append(args, DefaultPlayerArgs...)
	}
	return &CommandPlayer{Binary: binary, Args: args}
}

func (p *CommandPlayer) Play(ctx context.Context, filename string) error {
	if strings.TrimSpace(filename) == "" {
		return errors.New("play: empty filename")
	}

	args := append(append([]string{}, p.Args...), filename)
	cmd := exec.CommandContext(ctx, p.Binary, args...)

	slog.Debug("starting player", "binary", p.Binary, "file", filename)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", p.Binary, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ProbePlayer writes a one-line summary of the audio stream instead of
// playing it, for machines without an audio device.
type ProbePlayer struct {
	Binary string
	Out    io.Writer
}

type probeResult struct {
	Streams []struct {
		CodecName  string `json:"codec_name"`
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

func (p *ProbePlayer) Play(ctx context.Context, filename string) error {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = DefaultProbeBinary
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", filename)
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("ffprobe inspect: %w", err)
	}

	summary, err := describe(output)
	if err != nil {
		return err
	}
	out := p.Out
	if out == nil {
		out = os.Stdout
	}
	_, err = fmt.Fprintln(out, summary)
	return err
}

func describe(raw []byte) (string, error) {
	var result probeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("ffprobe parse: %w", err)
	}

	for _, stream := range result.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		parts := []string{stream.CodecName}
		if stream.SampleRate != "" {
			parts = append(parts, stream.SampleRate+" Hz")
		}
		if stream.Channels > 0 {
			parts = append(parts, fmt.Sprintf("%d ch", stream.Channels))
		}
		if secs, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			parts = append(parts, (time.Duration(secs * float64(time.Second))).Round(time.Millisecond).String())
		}
		return "[audio] " + strings.Join(parts, ", "), nil
	}

	return "", fmt.Errorf("no audio stream found in %s container", result.Format.FormatName)
}
