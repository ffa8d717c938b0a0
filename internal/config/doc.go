// Package config loads, normalizes, and validates taxonid configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the TAXONID_DATABASE environment override. Release
// settings mirror the knobs of a release run: restart, since, start, the
// names index deduplication workaround and the id map batch size.
package config
