package main

import (
	"log"

	"github.com/jaennil/tileserve/internal/app"
	"github.com/jaennil/tileserve/pkg/config"
)

func main() {
	realMain()
}

func realMain() {
	cfg, err := config.NewPack()
	if err != nil {
		log.Fatalln("failed to load config: ", err)
	}

	app.RunPack(cfg)
}
