package cmd

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"async-inference/internal/awsconfig"
	"async-inference/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
)

var verbose = flag.Bool("verbose", false, "enable debug logging")

// LoadEnvFile parses the command line and loads the -env file, if any, into
// the process environment. Binaries must register their own flags before calling it.
func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if configPath == "" {
		slog.Debug("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

func LoadConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func LoadAWSConfig(ctx context.Context, cfg *config.Config) aws.Config {
	awsCfg, err := awsconfig.Load(ctx, awsconfig.Params{
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return awsCfg
}
