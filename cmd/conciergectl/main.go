// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// conciergectl is a small operator CLI for the assistant service. It talks
// to the running service over its HTTP API; it has no direct access to the
// pipeline or the stores.
package main

import (
	"log"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	callTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "conciergectl",
	Short: "Operator CLI for the ZARAARA shopping assistant",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server",
		"http://localhost:5000", "Base URL of the assistant service")
	rootCmd.PersistentFlags().DurationVar(&callTimeout, "timeout",
		3*time.Minute, "Per-request timeout (chat requests can include try-on waits)")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
