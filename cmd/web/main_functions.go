package main

import (
	"log"
	"os"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/klkchan/klkchan/internal/config"
)

// Prof is set when started with -pprof
var Prof *prof.Profiler

// applyFlags lets command-line flags win over defaults and KLK_* variables
func applyFlags(cfg *config.MainConfig) {
	if webport > 0 {
		cfg.Web.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webport)
	}
	if webssl {
		cfg.Web.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		cfg.Web.CertFile = webcertFile
	}
	if webkeyFile != "" {
		cfg.Web.KeyFile = webkeyFile
	}
	if dataDir != "" {
		cfg.Database.DataDir = dataDir
	}
	if wordListDir != "" {
		cfg.Moderation.WordListDir = wordListDir
	}
	if debug {
		cfg.Web.Debug = true
	}
}

// startProfiler serves pprof on addr and writes a memory profile every 5 minutes
func startProfiler(addr string) {
	Prof = prof.NewProf()
	go Prof.PprofWeb(addr)
	Prof.StartMemProfile(5*time.Minute, 30*time.Second)
	log.Printf("[WEB]: pprof listening on %s", addr)
}

// monitorUpdateFile checks for the existence of an .update file every 60 seconds
// and signals for shutdown when found, then renames the file
func monitorUpdateFile(shutdownChan chan<- bool) {
	updateFilePath := ".update"
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		if _, err := os.Stat(updateFilePath); err != nil {
			continue
		}
		log.Printf("[WEB]: Update file '%s' detected, triggering graceful shutdown", updateFilePath)
		if err := os.Rename(updateFilePath, updateFilePath+".todo"); err != nil {
			log.Printf("[WEB]: Warning: Failed to rename update file '%s': %v", updateFilePath, err)
			continue
		}
		select {
		case shutdownChan <- true:
		default:
			log.Printf("[WEB]: Shutdown channel already signaled")
		}
		return
	}
}
