package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"async-inference/cmd"
	"async-inference/internal/config"
	"async-inference/internal/inference"
	"async-inference/internal/payload"
	"async-inference/internal/playback"
	"async-inference/internal/s3"

	"github.com/schollz/progressbar/v3"
)

type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

var (
	payloadPath = flag.String("payload", "", "path to a .json/.yaml payload description to upload")
	keepPayload = flag.Bool("keep-payload", false, "do not delete the local payload file after upload")
	play        = flag.Bool("play", false, "play downloaded audio")
	probe       = flag.Bool("probe", false, "describe downloaded audio with ffprobe instead of playing it")
	outputs     stringList
	labels      stringList
)

func main() {
	flag.Var(&outputs, "output", "s3:// output location to wait for (repeatable)")
	flag.Var(&labels, "label", "label printed before each played file (repeatable)")

	cmd.LoadEnvFile()
	cfg := cmd.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg := cmd.LoadAWSConfig(ctx, cfg)
	s3Client := s3.NewS3Client(awsCfg, s3.Config{
		S3EndpointURL: cfg.S3EndpointURL,
		DefaultBucket: cfg.DefaultBucket,
	})

	if *payloadPath != "" {
		texts := uploadPayload(ctx, cfg, s3Client, *payloadPath)
		if len(labels) == 0 {
			labels = texts
		}
	}

	if len(outputs) == 0 {
		return
	}

	downloader := inference.NewDownloader(s3Client, cfg.DownloadDir, cacheMode(cfg))

	var files []string
	for _, output := range outputs {
		data, err := waitForOutput(ctx, cfg, s3Client, output)
		if err != nil {
			log.Fatalf("Failed to get output %s: %v", output, err)
		}

		locations, err := inference.AudioLocations(data, output)
		if err != nil {
			log.Fatalf("Failed to read output %s: %v", output, err)
		}

		for _, location := range locations {
			file, err := downloader.Download(ctx, location)
			if err != nil {
				log.Fatalf("Failed to download %s: %v", location, err)
			}
			files = append(files, file)
		}
	}

	if !*play && !*probe {
		for _, file := range files {
			if file != "" {
				fmt.Println(file)
			}
		}
		return
	}

	for len(labels) < len(files) {
		labels = append(labels, fmt.Sprintf("output %d", len(labels)+1))
	}

	var player playback.Player = playback.NewCommandPlayer(cfg.PlayerCommand)
	if *probe {
		player = &playback.ProbePlayer{Out: os.Stdout}
	}
	if err := playback.Play(ctx, os.Stdout, player, files, labels); err != nil {
		log.Fatalf("Playback failed: %v", err)
	}
}

func uploadPayload(ctx context.Context, cfg *config.Config, client *s3.Client, path string) []string {
	if client.DefaultBucket() == "" {
		log.Fatalf("DEFAULT_BUCKET must be set to upload payloads")
	}

	data, err := payload.LoadFile(path)
	if err != nil {
		log.Fatalf("Failed to load payload: %v", err)
	}

	filename, err := payload.Generate(cfg.PayloadDir, data)
	if err != nil {
		log.Fatalf("Failed to write payload: %v", err)
	}

	location, err := payload.Upload(ctx, client, client.DefaultBucket(), cfg.InputKeyPrefix, filename)
	if !*keepPayload {
		if delErr := payload.Delete(filename); delErr != nil {
			log.Printf("Failed to clean up payload file: %v", delErr)
		}
	}
	if err != nil {
		log.Fatalf("Failed to upload payload: %v", err)
	}

	fmt.Println(location)

	var texts []string
	if raw, ok := data["texts"].([]any); ok {
		for _, text := range raw {
			texts = append(texts, fmt.Sprint(text))
		}
	}
	return texts
}

func waitForOutput(ctx context.Context, cfg *config.Config, client *s3.Client, output string) ([]byte, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("generating music"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	defer bar.Finish() // nolint:errcheck

	data, err := inference.GetOutput(ctx, client, output, inference.PollConfig{
		Interval:    cfg.PollInterval,
		MaxInterval: cfg.PollMaxInterval,
		Multiplier:  cfg.PollMultiplier,
		MaxWait:     cfg.PollMaxWait,
		MaxAttempts: cfg.PollMaxAttempts,
		OnWait: func(attempt int, next time.Duration) {
			bar.Describe(fmt.Sprintf("generating music (attempt %d, next check in %s)", attempt, next))
			bar.Add(1) // nolint:errcheck
		},
	})
	if errors.Is(err, inference.ErrTimedOut) {
		return nil, fmt.Errorf("output not ready after POLL_MAX_WAIT=%s POLL_MAX_ATTEMPTS=%d: %w", cfg.PollMaxWait, cfg.PollMaxAttempts, err)
	}
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(os.Stderr, "Music is ready!")
	return data, nil
}

func cacheMode(cfg *config.Config) inference.CacheMode {
	if cfg.DownloadCacheMode == config.CacheByContent {
		return inference.CacheByContent
	}
	return inference.CacheByName
}
