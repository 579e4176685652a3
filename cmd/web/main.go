// klkchan web server: HTML pages and the JSON API
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klkchan/klkchan/internal/auth"
	"github.com/klkchan/klkchan/internal/cache"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/forum"
	"github.com/klkchan/klkchan/internal/moderation"
	"github.com/klkchan/klkchan/internal/web"
)

var (
	// command-line flags
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	dataDir     string
	wordListDir string
	debug       bool
	pprofAddr   string
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&dataDir, "data", "", "Directory for klkchan.sq3 (default: ./data)")
	flag.StringVar(&wordListDir, "wordlists", "", "Directory with the banned word lists (default: ./data/ldnoobw)")
	flag.BoolVar(&debug, "debug", false, "Development mode, relaxes the security headers")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof and write memory profiles on this address (e.g. :51111)")
	flag.Parse()

	log.Printf("Starting klkchan web server (version: %s)", appVersion)

	mainConfig := config.NewDefaultConfig()
	mainConfig.AppVersion = appVersion
	if err := mainConfig.LoadEnv(); err != nil {
		log.Fatalf("[WEB]: Failed to load environment: %v", err)
	}
	applyFlags(mainConfig)
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}
	webConfig := &mainConfig.Web
	log.Printf("[WEB]: Using WEB configuration: port=%d ssl=%t site=%q", webConfig.ListenPort, webConfig.SSL, webConfig.SiteName)

	if pprofAddr != "" {
		startProfiler(pprofAddr)
	}

	database.SessionTimeout = mainConfig.Auth.SessionTimeout

	dbConfig := database.DefaultDBConfig()
	dbConfig.DataDir = mainConfig.Database.DataDir
	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize database: %v", err)
	}

	filter, err := moderation.LoadFilter(mainConfig.Moderation.WordListDir, mainConfig.Moderation.Languages...)
	if err != nil {
		log.Fatalf("[WEB]: Failed to load word lists: %v", err)
	}

	listingCache := cache.NewListingCache(mainConfig.Cache.MaxEntries, mainConfig.Cache.MaxAge)
	tokens := auth.NewIssuer(mainConfig.Auth.Secret, mainConfig.Auth.Issuer,
		mainConfig.Auth.AccessTokenTTL, mainConfig.Auth.RefreshTokenTTL)
	svc := forum.NewService(db, filter, listingCache)

	server := web.NewServer(svc, db, tokens, listingCache, webConfig)
	server.StartSessionCleanup()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			webServerErrChan <- err
		}
	}()

	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	updateFileChan := make(chan bool, 1)
	go monitorUpdateFile(updateFileChan)

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	case <-updateFileChan:
		log.Printf("[WEB]: Update file detected, initiating graceful shutdown for update...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error stopping web server: %v", err)
	}
	listingCache.Stop()

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}
