// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package config provides project-level configuration for dieselpath
package config

const (
	// DefaultFileName is the config file looked up in the working directory
	DefaultFileName = ".dieselpath.yaml"
	// EnvVar points at a config file, overridden by --config
	EnvVar = "DIESELPATH_CONFIG"
)
