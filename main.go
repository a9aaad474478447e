/*
Opens a window and keeps presenting frames drawn by a task/mesh/fragment
pipeline until the window is closed or Escape is pressed.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/meshlet/engine"
	"github.com/spaghettifunk/meshlet/engine/config"
	"github.com/spaghettifunk/meshlet/engine/core"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML configuration (default "+config.DefaultPath+" if present)")
	printConfig := flag.Bool("print-config", false, "print the effective configuration as TOML and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("Failed to load the configuration: %s", err)
	}
	if *printConfig {
		if err := cfg.Encode(os.Stdout); err != nil {
			core.LogFatal("Failed to print the configuration: %s", err)
		}
		return
	}
	core.LogInitialize(core.LogOptions{
		Level:        cfg.LogLevel(),
		ReportCaller: cfg.Log.ReportCaller,
		Output:       os.Stderr,
	})

	if cfg.Log.Watch {
		path := *configPath
		if path == "" {
			path = config.DefaultPath
		}
		if _, err := os.Stat(path); err == nil {
			watcher, err := config.NewWatcher(path, config.ApplyLogLevel)
			if err != nil {
				core.LogWarn("Configuration will not be reloaded: %s", err)
			} else {
				defer watcher.Close()
			}
		}
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal("Failed to create the engine: %s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		_ = e.Shutdown()
	}()

	// run engine
	if err := e.Run(); err != nil {
		core.LogFatal("Engine stopped: %s", err)
	}
	core.LogInfo("Bye.")
}
