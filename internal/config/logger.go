package config

import (
	"io"
	"os"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// InitLogger configures the global apex logger from the log section.
func InitLogger(c *Config) error {
	return initLogger(os.Stderr, c.Log.Format, c.Log.Level)
}

// InitCLILogger uses the compact handler meant for terminals.
func InitCLILogger(level string) error {
	return initLogger(os.Stderr, "cli", level)
}

func initLogger(w io.Writer, format, level string) error {
	switch format {
	case "json":
		log.SetHandler(json.New(w))
	case "cli":
		log.SetHandler(cli.New(w))
	default:
		log.SetHandler(text.New(w))
	}
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}
