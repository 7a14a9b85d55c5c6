// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package v0 provides the schema for v0 of the dieselpath config file
//
// v0 allows for breaking changes without a major version increase
package v0

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
	"github.com/spf13/afero"
	"github.com/xeipuuv/gojsonschema"

	"github.com/defenseunicorns/dieselpath"
	"github.com/defenseunicorns/dieselpath/config"
	"github.com/defenseunicorns/dieselpath/schema"
)

// SchemaVersion is the current schema version for configs
const SchemaVersion = "v0"

// Config is the project configuration file for dieselpath
type Config struct {
	SchemaVersion string              `json:"schema-version"`
	File          string              `json:"file"`
	Base          dieselpath.BaseMode `json:"base"`
	Subpath       string              `json:"subpath"`
	Backup        bool                `json:"backup,omitempty"`
	Atomic        bool                `json:"atomic,omitempty"`
	Strict        bool                `json:"strict,omitempty"`
	LogFile       string              `json:"log-file,omitempty"`
}

// JSONSchemaExtend extends the JSON schema for a config
//
// file, base and subpath fall back to their defaults, so only schema-version is required
func (Config) JSONSchemaExtend(schema *jsonschema.Schema) {
	schema.Required = []string{"schema-version"}

	if schemaVersion, ok := schema.Properties.Get("schema-version"); ok && schemaVersion != nil {
		schemaVersion.Description = "Config schema version"
		schemaVersion.Enum = []any{SchemaVersion}
	}

	if file, ok := schema.Properties.Get("file"); ok && file != nil {
		file.Description = "Path to diesel.toml, relative to the base directory unless absolute"
		file.MinLength = ptr(uint64(1))
	}

	if subpath, ok := schema.Properties.Get("subpath"); ok && subpath != nil {
		subpath.Description = "Joined with the base directory to form the migrations directory"
		subpath.MinLength = ptr(uint64(1))
	}

	if backup, ok := schema.Properties.Get("backup"); ok && backup != nil {
		backup.Description = "Keep the previous content at <file>.bak"
	}

	if atomic, ok := schema.Properties.Get("atomic"); ok && atomic != nil {
		atomic.Description = "Write to <file>.tmp and rename it over <file>"
	}

	if strict, ok := schema.Properties.Get("strict"); ok && strict != nil {
		strict.Description = `Fail when no line starts with "dir ="`
	}

	if logFile, ok := schema.Properties.Get("log-file"); ok && logFile != nil {
		logFile.Description = "Append timestamped entries to this file"
	}
}

func ptr[T any](v T) *T {
	return &v
}

// Default returns a valid config carrying every default
func Default() *Config {
	return &Config{
		SchemaVersion: SchemaVersion,
		File:          dieselpath.DefaultFile,
		Base:          dieselpath.DefaultBaseMode,
		Subpath:       dieselpath.DefaultSubpath,
	}
}

// LoadConfig reads a config from r, unset fields keep their defaults
func LoadConfig(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var versioned schema.Versioned
	if err := yaml.Unmarshal(data, &versioned); err != nil {
		return nil, err
	}

	switch version := versioned.SchemaVersion; version {
	case SchemaVersion:
		cfg := Default()
		if err := yaml.UnmarshalWithOptions(data, cfg, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, Validate(cfg)
	default:
		return nil, fmt.Errorf("unsupported config schema version: expected %q, got %q", SchemaVersion, version)
	}
}

// LoadDefaultConfig loads config.DefaultFileName from the root of fsys
//
// If the file does not exist, the default config is returned
func LoadDefaultConfig(fsys afero.Fs) (*Config, error) {
	f, err := fsys.Open(config.DefaultFileName)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

// Since every validation operation leverages the same schema, only calculate it once
//
// This also prevents any schema changes from occurring at runtime
var schemaOnce = sync.OnceValues(func() (string, error) {
	s := Schema()
	b, err := json.Marshal(s)
	return string(b), err
})

// Validate checks if a config adheres to the JSON schema
func Validate(cfg *Config) error {
	schema, err := schemaOnce()
	if err != nil {
		return err
	}

	schemaLoader := gojsonschema.NewStringLoader(schema)

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(cfg))
	if err != nil {
		return err
	}

	if result.Valid() {
		return nil
	}

	var resErr error
	for _, err := range result.Errors() {
		resErr = errors.Join(resErr, errors.New(err.String()))
	}

	return resErr
}

// Schema returns the JSON schema for the Config type
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{DoNotReference: true}
	return reflector.Reflect(&Config{})
}
