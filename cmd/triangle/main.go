package main

import (
	"encoding/json"
	"flag"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/triangle/renderer"
	"github.com/vkngwrapper/triangle/window"
)

var (
	configPath  = flag.String("config", ".env", "dotenv file overriding the default configuration")
	verbose     = flag.Bool("v", false, "log at debug level")
	listDevices = flag.Bool("devices", false, "print every physical device as JSON and exit")
)

func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(log); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(log *logrus.Logger) error {
	cfg, err := renderer.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	win, err := window.Open(cfg.ApplicationName, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer win.Close()

	if *listDevices {
		reports, err := renderer.ListDevices(win, cfg, log)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}

	backend, err := renderer.New(win, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	for !win.ShouldClose() {
		win.PumpEvents()
		if err := backend.DrawFrame(); err != nil {
			log.WithField("state", backend.State()).Error("Frame failed")
			return err
		}
	}

	stats := backend.Stats()
	log.WithFields(logrus.Fields{
		"frames": stats.Frames,
		"min":    stats.Min,
		"avg":    stats.Average(),
		"max":    stats.Max,
	}).Info("Frame statistics")
	return nil
}
