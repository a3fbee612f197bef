// Package config handles loading and validating scale registry configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SCALEREG_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (backend token, JWT secret, MQTT password) should be
//     set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.LoadOptional("scalereg.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := registry.Open(cfg.Registry.Path)
//
// Server commands additionally call ValidateServer, which requires a JWT
// secret of at least 32 characters.
package config
