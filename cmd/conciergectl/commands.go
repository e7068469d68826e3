// Copyright (C) 2025 Zaraara Fashion (platform@zaraara.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zaraara/concierge/services/assistant/datatypes"
)

var (
	chatUserID    string
	chatAuthToken string
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the assistant service is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := apiCall(cmd.Context(), http.MethodGet, "/api/health", nil)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send a chat message and print the replies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(datatypes.ChatRequest{
			Message:   strings.Join(args, " "),
			UserID:    chatUserID,
			AuthToken: chatAuthToken,
		})
		if err != nil {
			return err
		}
		body, err := apiCall(cmd.Context(), http.MethodPost, "/api/chat", payload)
		if err != nil {
			return err
		}

		var resp datatypes.ChatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("unexpected response: %w", err)
		}
		for _, r := range resp.Responses {
			fmt.Printf("[%s] %s\n", r.Type, r.Message)
		}
		if resp.Error != "" {
			return fmt.Errorf("server error: %s", resp.Error)
		}
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear a user's conversation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(datatypes.ClearRequest{UserID: chatUserID})
		if err != nil {
			return err
		}
		body, err := apiCall(cmd.Context(), http.MethodPost, "/api/chat/clear", payload)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a user's stored conversation turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/chat/history"
		if chatUserID != "" {
			path += "?user_id=" + chatUserID
		}
		body, err := apiCall(cmd.Context(), http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{chatCmd, clearCmd, historyCmd} {
		cmd.Flags().StringVar(&chatUserID, "user", "", "User ID (defaults to the shared anonymous user)")
	}
	chatCmd.Flags().StringVar(&chatAuthToken, "auth-token", "", "Bearer token for order lookups")
}

// apiCall performs one HTTP round trip against the service and returns the
// body. Non-2xx responses become errors carrying the body text.
func apiCall(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(serverURL, "/")+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("server returned %s: %s", res.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
