// Package config provides configuration loading and validation for gokit
// applications.
//
// It uses Viper to load configuration from a config file (searched for in
// standard locations unless given explicitly), an optional .env file, and
// environment variables.
//
// # Usage
//
//	var cfg MyConfig
//	err := config.LoadConfig("my-service", &cfg)
//
// Environment variables override file values. They take no prefix; their
// underscore-separated names are mapped onto nested keys (e.g.,
// DATABASE_HOST sets database.host).
package config
