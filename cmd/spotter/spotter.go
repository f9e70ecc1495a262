package main

import (
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/logs"
	"github.com/cyclopcam/spotter/server"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a dev-time convenience; absence is not an error
	godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	parser := argparse.NewParser("spotter", "Object detection HTTP service")
	port := parser.Int("p", "port", &argparse.Options{Help: "HTTP listen port", Default: cfg.Port})
	inferenceURL := parser.String("", "inference", &argparse.Options{Help: "URL of the inference server", Default: cfg.InferenceURL})
	modelName := parser.String("", "nn", &argparse.Options{Help: "Name of the object detection model", Default: cfg.ModelName})
	workers := parser.Int("", "workers", &argparse.Options{Help: "Concurrent frames during video analysis", Default: cfg.VideoWorkers})
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}
	cfg.Port = *port
	cfg.InferenceURL = *inferenceURL
	cfg.ModelName = *modelName
	cfg.VideoWorkers = *workers

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(logger, cfg)
	if err != nil {
		logger.Errorf("Failed to create server: %v", err)
		os.Exit(1)
	}

	srv.ListenForKillSignals()
	daemon.SdNotify(false, daemon.SdNotifyReady)
	if err := srv.ListenHTTP(fmt.Sprintf(":%v", cfg.Port)); err != nil {
		logger.Errorf("HTTP server failed: %v", err)
		os.Exit(1)
	}
}
