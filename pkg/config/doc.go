// Package config provides configuration management for the Treblle agent.
//
// Configuration is loaded from YAML files with environment variable
// overrides and is read once at startup; nothing re-reads it afterwards.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("treblle.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("treblle.yaml")
//
//  3. From the environment only:
//     cfg, err := config.LoadFromEnv()
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TREBLLE_<FIELD>:
//
//   - TREBLLE_SDK_TOKEN and TREBLLE_API_KEY set the credential pair
//   - TREBLLE_ENDPOINT overrides the delivery host rotation
//   - TREBLLE_HIDDEN_KEYS and TREBLLE_IGNORED_ENVIRONMENTS take comma lists
//   - TREBLLE_ENV (then ENV) names the current environment
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
//  1. Default values (Default, defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// Missing credentials are not a validation error. An agent without
// credentials runs disabled and reports the problem when it is constructed.
package config
