package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gomarketplace_parser/config"
	"gomarketplace_parser/internal/parsing/app"
)

func main() {
	configPath := flag.String("config", os.Getenv("PARSER_CONFIG"), "path to yaml config")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Started parser service")
	if err := app.NewParserServer(cfg, os.Stdout).Run(ctx); err != nil {
		log.Fatalf("Parser service stopped with error: %v", err)
	}
	log.Printf("Parser service stopped")
}
