package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"async-inference/cmd"
	"async-inference/internal/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] create <name> | get <topic-arn> | delete <topic-arn>\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage

	cmd.LoadEnvFile()
	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	op, arg := flag.Arg(0), flag.Arg(1)

	cfg := cmd.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	topics := notification.NewTopicClientFromConfig(cmd.LoadAWSConfig(ctx, cfg))

	switch op {
	case "create":
		resp, err := topics.CreateTopic(ctx, arg)
		if err != nil {
			log.Fatalf("Create failed: %v", err)
		}
		fmt.Println(aws.ToString(resp.TopicArn))
	case "get":
		attrs, err := topics.GetTopicAttributes(ctx, arg)
		if err != nil {
			log.Fatalf("Get failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(attrs); err != nil {
			log.Fatalf("Failed to print attributes: %v", err)
		}
	case "delete":
		if err := topics.DeleteTopic(ctx, arg); err != nil {
			log.Fatalf("Delete failed: %v", err)
		}
	default:
		usage()
		os.Exit(2)
	}
}
