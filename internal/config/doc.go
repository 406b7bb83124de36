// Package config loads the JSON configuration shared by the TPM tools:
// file locations, the fitted coefficient tables and the verification
// settings. Coefficient tables are plain structs so several fitted models
// can coexist and be swapped in tests.
package config
