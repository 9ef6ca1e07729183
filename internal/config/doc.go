// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Durations use Go syntax ("5s", "1m30s"). Each binary has its own root type:
// DashboardConfig for cmd/dashboard and OrderAPIConfig for cmd/orderapi.
package config
