// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
)

// statusReport is the JSON shape of `aetheris status --json`.
type statusReport struct {
	Server       string `json:"server"`
	SignedIn     bool   `json:"signed_in"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	HistoryCount int    `json:"history_count"`
	Version      string `json:"version"`
}

// HandleStatus reports the session, server and history state.
func HandleStatus(args Args) error {
	rt, err := Bootstrap(WithNotifier(cliNotifier{}))
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	rt.Session.Initialize(ctx)

	report := statusReport{
		Server:   rt.Config.Server.BaseURL,
		SignedIn: rt.Session.IsLoggedIn(),
		Username: rt.Session.Username(),
		Email:    rt.Session.Email(),
		Version:  Version,
	}
	if rt.History != nil {
		if n, err := rt.History.Count(ctx); err == nil {
			report.HistoryCount = n
		}
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("server:   %s\n", report.Server)
	if report.SignedIn {
		fmt.Printf("session:  signed in as %s <%s>\n", report.Username, report.Email)
	} else {
		fmt.Println("session:  not signed in")
	}
	if rt.History != nil {
		fmt.Printf("history:  %d question(s) recorded\n", report.HistoryCount)
	} else {
		fmt.Println("history:  disabled")
	}
	fmt.Printf("version:  %s\n", report.Version)
	return nil
}

// HandleVersion prints build information, optionally as JSON.
func HandleVersion(args Args) error {
	if !args.JSON {
		PrintVersion()
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	})
}
