package main

import (
	"context"
	"flag"
	"os"

	"github.com/ixxchan/nb/commands"
	"github.com/ixxchan/nb/config"

	log "github.com/sirupsen/logrus"
)

func setLogLevel(level string) {
	l, err := log.ParseLevel(level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	log.SetLevel(l)
}

func registerGlobalFlags(fset *flag.FlagSet) {
	flag.VisitAll(func(f *flag.Flag) {
		fset.Var(f.Value, f.Name, f.Usage)
	})
}

// main is the entry point of the application.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configFile := flag.String("config", "", "Path to config file")
	logLevel := flag.String("loglevel", "debug", "Log level")

	initCmd := flag.NewFlagSet("init", flag.ExitOnError)
	registerGlobalFlags(initCmd)

	serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddr := serveCmd.String("addr", "", "Listen address, overrides the config file")
	registerGlobalFlags(serveCmd)

	if len(os.Args) < 2 {
		log.WithField("args", os.Args).Fatal("Expected a subcommand")
	}
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "init":
		initCmd.Parse(args)
		if *configFile == "" {
			log.Fatal("Config file not specified")
		}
		setLogLevel(*logLevel)
		cfg := config.NewEmptyConfig(*configFile)
		commands.RunInit(ctx, cfg)
	case "serve":
		serveCmd.Parse(args)
		setLogLevel(*logLevel)
		cfg := config.NewEmptyConfig(*configFile)
		if *configFile != "" {
			var err error
			cfg, err = config.NewConfigFromFile(*configFile)
			if err != nil {
				log.Fatalf("Failed to load config: %v", err)
			}
		}
		if *listenAddr != "" {
			cfg.Node.ListenAddress = *listenAddr
		}
		commands.RunServe(ctx, cfg)
	default:
		log.Fatalf("Invalid subcommand '%s'", os.Args[1])
	}
}
