// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package main prints the JSON schema of the dieselpath config file.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	configv0 "github.com/defenseunicorns/dieselpath/config/v0"
)

func main() {
	schema := configv0.Schema()

	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v", err)
		os.Exit(1)
	}

	fmt.Fprint(os.Stdout, string(b))
}
