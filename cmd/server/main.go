// Package main initializes and starts the Finnova authentication server,
// setting up configuration, logging, the document stores, the account
// registry, handlers, and the HTTP listener.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/finnova/finnova/internal/config"
	"github.com/finnova/finnova/internal/credential"
	"github.com/finnova/finnova/internal/face"
	"github.com/finnova/finnova/internal/logger"
	"github.com/finnova/finnova/internal/registry"
	"github.com/finnova/finnova/internal/server/handler/http"
	"github.com/finnova/finnova/internal/store"
)

// integrityInterval is how often the orphaned-template sweep runs.
const integrityInterval = time.Hour

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// One store instance per document, one registry per process; every
	// component receives them explicitly.
	dataStore := store.NewDocumentStore(options.DataFile, zapLogger)
	faceStore := store.NewFaceStore(options.FaceDataFile, zapLogger)

	hasher := credential.NewHasher(options.PasswordSalt)
	matcher := face.NewMatcher(options.DuplicateTolerance, options.MatchTolerance)

	reg := registry.New(dataStore, faceStore, hasher, matcher, zapLogger)

	// Periodically report orphaned face templates.
	registry.StartIntegrityChecker(context.Background(), reg, integrityInterval, zapLogger)

	// Create HTTP handlers and build the router.
	authHandler := &http.AuthHandler{Accounts: reg, Matcher: matcher, Log: zapLogger}
	router := http.NewRouter(authHandler, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
