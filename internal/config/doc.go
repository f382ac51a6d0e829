// Package config provides centralized configuration management for the wage
// browser. It loads configuration from multiple sources, validates it, and
// exposes a typed Config to the rest of the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern OEWS_<SECTION>_<FIELD>:
//
//	OEWS_SERVER_PORT=8080
//	OEWS_REMOTE_OWNER=Soorej30
//	OEWS_REMOTE_BRANCH=main
//	OEWS_REMOTE_TOKEN=ghp_...
//	OEWS_LOGGING_LEVEL=debug
//
// OEWS_CONFIG_FILE points at an explicit YAML file; otherwise config.yaml and
// configs/config.yaml are tried.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := remote.NewClient(cfg.Remote, logger)
package config
