/*
Cfgserver starts a cfgparse grammar-parsing HTTP server and begins listening
for requests.

Usage:

	cfgserver [flags]
	cfgserver [flags] -l [[ADDRESS]:PORT]

Once started, the server listens for HTTP requests and answers them per its
REST API: register a grammar, fetch one back, run it through the earley or
cyk engine, and forget it.

If a JWT token secret is not given, one will be automatically generated and
seeded from the system CSPRNG. As a consequence, in this mode of operation all
tokens become invalid as soon as the server shuts down. This is suitable for
testing, but must be given via either CLI flag or environment variable if
running in production.

The flags are:

	-v, --version
		Give the current version of the cfgparse server and then exit.

	-l, --listen LISTEN_ADDRESS
		Listen on the given address. Must be in BIND_ADDRESS:PORT or :PORT
		format. If not given, defaults to the value of environment variable
		CFGPARSE_LISTEN_ADDRESS, and if that is not given, to localhost:8080.

	-s, --secret TOKEN_SECRET
		Use the provided secret for signing JWT tokens. If there are less than
		32 bytes in the secret, it will be repeated until it is; the maximum
		size is 64 bytes. If not given, defaults to the value of environment
		variable CFGPARSE_TOKEN_SECRET. If no secret is specified, a random
		secret will be generated.

	--db DRIVER[:PARAMS]
		Use the given DB connection string. DRIVER must be one of: inmem,
		sqlite. sqlite needs the path to the data directory, e.g.
		sqlite:path/to/data. If not given, defaults to the value of
		environment variable CFGPARSE_DATABASE, and if that is not given, to
		an in-memory store.

	-c, --config FILE
		Load a TOML configuration file. Values given on the command line or
		via environment variable take precedence over the file's values.

	--issue-key NAME
		Create a new API key named NAME, print the bearer token for it, and
		exit without starting the server.
*/
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/cfgparse/config"
	"github.com/dekarrin/cfgparse/internal/version"
	"github.com/dekarrin/cfgparse/server"
	"github.com/dekarrin/cfgparse/server/token"
	"github.com/dekarrin/cfgparse/store"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvListen = "CFGPARSE_LISTEN_ADDRESS"
	EnvSecret = "CFGPARSE_TOKEN_SECRET"
	EnvDB     = "CFGPARSE_DATABASE"
)

var (
	flagVersion = pflag.BoolP("version", "v", false, "Give the current version of cfgserver and then exit.")
	flagListen  = pflag.StringP("listen", "l", "", "Listen on the given address.")
	flagSecret  = pflag.StringP("secret", "s", "", "Use the given secret for token generation.")
	flagDB      = pflag.String("db", "", "Use the given DB connection string.")
	flagConfig  = pflag.StringP("config", "c", "", "Load a TOML config file.")
	flagIssue   = pflag.String("issue-key", "", "Create a new API key with the given name and print its bearer token.")
)

func main() {
	pflag.Parse()

	if *flagVersion {
		fmt.Printf("cfgserver v%s (cfgparse v%s)\n", version.ServerCurrent, version.Current)
		return
	}

	args := pflag.Args()
	if len(args) > 0 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		os.Exit(1)
	}

	cfg, err := resolveConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nDo -h for help.\n", err.Error())
		os.Exit(1)
	}
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %s\n", err.Error())
		os.Exit(1)
	}

	db, err := cfg.DB.Connect()
	if err != nil {
		log.Fatalf("FATAL could not connect to database: %s", err.Error())
	}
	defer db.Close()

	if *flagIssue != "" {
		issueKey(db, cfg.TokenSecret, *flagIssue)
		return
	}

	srv := server.New(db, cfg.TokenSecret, cfg.UnauthDelay())
	log.Printf("INFO  Starting cfgparse server %s on %s...", version.ServerCurrent, cfg.ListenAddress)
	if err := srv.ListenAndServe(cfg.ListenAddress); err != nil {
		log.Fatalf("FATAL server stopped: %s", err.Error())
	}
}

// resolveConfig assembles a config.Config from (in increasing precedence)
// an optional config file, environment variables, and CLI flags, matching
// cmd/tqserver/main.go's flag/env/default resolution order generalized to
// also allow a config file.
func resolveConfig() (config.Config, error) {
	var cfg config.Config

	if *flagConfig != "" {
		fileCfg, err := config.Load(*flagConfig)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config file: %w", err)
		}
		cfg = fileCfg
	}

	listenAddr := os.Getenv(EnvListen)
	if pflag.Lookup("listen").Changed {
		listenAddr = *flagListen
	}
	if listenAddr != "" {
		if !strings.Contains(listenAddr, ":") {
			return config.Config{}, fmt.Errorf("listen address is not in ADDRESS:PORT or :PORT format")
		}
		bindParts := strings.SplitN(listenAddr, ":", 2)
		if _, err := strconv.Atoi(bindParts[1]); err != nil {
			return config.Config{}, fmt.Errorf("%q is not a valid port number", bindParts[1])
		}
		cfg.ListenAddress = listenAddr
	}

	dbConnStr := os.Getenv(EnvDB)
	if pflag.Lookup("db").Changed {
		dbConnStr = *flagDB
	}
	if dbConnStr != "" {
		db, err := config.ParseDBConnString(dbConnStr)
		if err != nil {
			return config.Config{}, err
		}
		cfg.DB = db
	}

	tokSecStr := os.Getenv(EnvSecret)
	if pflag.Lookup("secret").Changed {
		tokSecStr = *flagSecret
	}
	if tokSecStr != "" {
		secret := []byte(tokSecStr)
		for len(secret) < config.MinSecretSize {
			doubled := make([]byte, len(secret)*2)
			copy(doubled, secret)
			copy(doubled[len(secret):], secret)
			secret = doubled
		}
		if len(secret) > config.MaxSecretSize {
			return config.Config{}, fmt.Errorf("token secret is %d bytes, but must be <= %d bytes", len(secret), config.MaxSecretSize)
		}
		cfg.TokenSecret = secret
	} else if cfg.TokenSecret == nil {
		secret := make([]byte, config.MaxSecretSize)
		if _, err := rand.Read(secret); err != nil {
			return config.Config{}, fmt.Errorf("generate random token secret: %w", err)
		}
		log.Printf("WARN  Using generated token secret; all tokens issued will become invalid at shutdown")
		cfg.TokenSecret = secret
	}

	return cfg, nil
}

// issueKey creates a new API key named name, signs a bearer token for it
// using secret, and prints the token. The key's HashedSecret is a bcrypt
// hash of a random value: nothing ever compares a caller-presented secret
// against it directly (auth is by bearer token alone, per
// server/token/token.go), but the hash still gives each key its own
// independent, rotatable credential material.
func issueKey(db store.Store, secret []byte, name string) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		log.Fatalf("FATAL could not generate key material: %s", err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("FATAL could not hash key material: %s", err.Error())
	}

	key, err := db.APIKeys().Create(context.Background(), store.APIKey{
		Name:         name,
		HashedSecret: string(hash),
	})
	if err != nil {
		log.Fatalf("FATAL could not create API key: %s", err.Error())
	}

	tok, err := token.Generate(secret, key)
	if err != nil {
		log.Fatalf("FATAL could not generate token: %s", err.Error())
	}

	fmt.Printf("API key %q created with ID %s\n", key.Name, key.ID)
	fmt.Printf("Bearer token (store this; it cannot be recovered later):\n%s\n", tok)
}
