// Package config loads application configuration from environment
// variables into tagged structs, reading a .env file first when one is
// present in the working directory.
package config
