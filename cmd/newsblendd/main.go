package main

import (
	"log"
	"os"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/server"
)

func main() {
	addr := os.Getenv("NEWSBLEND_HTTP_ADDR")

	cfg := config.LoadConfig(os.Getenv("NEWSBLEND_CONFIG_PATH"))
	if err := server.Run(cfg, addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
