package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/liftheat/internal/app"
	"github.com/relabs-tech/liftheat/internal/config"
)

func main() {
	configPath := flag.String("config", "./liftheat_config.txt", "path to configuration file")
	samples := flag.Bool("samples", false, "also print raw accelerometer samples")
	flag.Parse()

	log.Println("starting liftheat console (MQTT subscriber)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunConsoleMQTT(*samples); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
