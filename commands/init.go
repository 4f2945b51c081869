package commands

import (
	"context"

	"github.com/ixxchan/nb/config"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// RunInit writes a default config file for a new node.
func RunInit(ctx context.Context, cfg *config.Config) {
	if err := cfg.Save(); err != nil {
		log.Fatalf("Failed to save config: %v", err)
	}
}
