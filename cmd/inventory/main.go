package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

var version = "dev"

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("inventory stopped")
	}
}
