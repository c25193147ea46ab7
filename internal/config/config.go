// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string

	// DataFile is the path of the account document.
	DataFile string

	// FaceDataFile is the path of the face-template document.
	FaceDataFile string

	// PasswordSalt is the deployment secret mixed into password digests.
	// Sourced from the config file, overridden by FINNOVA_PASSWORD_SALT;
	// the credential package supplies a fixed default when both are unset.
	PasswordSalt string

	// DuplicateTolerance is the maximum embedding distance at which a new
	// face is rejected as already registered.
	DuplicateTolerance float64

	// MatchTolerance is the maximum embedding distance at which a login
	// probe is accepted.
	MatchTolerance float64

	// LogLevel sets the minimum logging level.
	LogLevel string

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DataFile, "data", "database/data.json", "path to account data file")
	flag.StringVar(&options.FaceDataFile, "faces", "assets/face_models/known_faces.json", "path to face template file")
	flag.Float64Var(&options.DuplicateTolerance, "dup-tolerance", 0.35, "embedding distance below which a new face counts as a duplicate")
	flag.Float64Var(&options.MatchTolerance, "match-tolerance", 0.4, "embedding distance below which a login probe is accepted")
	flag.StringVar(&options.LogLevel, "log-level", "info", "minimum log level")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}

	if salt := os.Getenv("FINNOVA_PASSWORD_SALT"); salt != "" {
		options.PasswordSalt = salt
	}

	return options
}
