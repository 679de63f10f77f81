package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCharnyshevich/worldstore/internal/server/storage"
)

func main() {
	var (
		url   = flag.String("url", "", "world location, any go-getter URL")
		cache = flag.String("o", "./data/cache", "cache dir path")
	)
	flag.Parse()

	if *url == "" {
		log.Fatal("world url required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Default().Printf("start downloading world %s", *url)

	dir, err := storage.Resolve(ctx, *url, *cache)
	if err != nil {
		log.Print(err)
		os.Exit(1)
	}

	log.Default().Printf("world ready in %s", dir)
}
