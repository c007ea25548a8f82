// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation,
// so the vendor key is normally written as api_key: ${POLYGON_API_KEY}.
// See configs/streamd.example.yaml for the full schema.
package config
