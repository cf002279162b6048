// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aetheris-rag/aetheris-tui/internal/auth"
)

// promptLine reads one trimmed line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// HandleLogin signs in and persists the session token.
func HandleLogin(args Args) error {
	rt, err := Bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()
	rt.Session.Initialize(ctx)
	if rt.Session.IsLoggedIn() {
		fmt.Printf("already signed in as %s\n", rt.Session.Username())
		return nil
	}

	email := args.Email
	if email == "" {
		if !IsStdinTTY() {
			return fmt.Errorf("no terminal for credential prompt; pass --email and pipe the password")
		}
		email, err = promptLine("email: ")
		if err != nil {
			return err
		}
	}

	var password string
	if IsStdinTTY() {
		password, err = readPassword("password: ")
	} else {
		password, err = promptLine("")
	}
	if err != nil {
		return err
	}

	if err := rt.Session.Login(ctx, auth.LoginRequest{Email: email, Password: password}); err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", rt.Session.Username())
	return nil
}

// HandleLogout clears the stored session.
func HandleLogout() error {
	rt, err := Bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Session.Logout()
	rt.Controller.ClearAll()
	fmt.Println("signed out")
	return nil
}

// HandleRegister creates an account, then leaves the user to sign in.
func HandleRegister(args Args) error {
	if !IsStdinTTY() {
		return fmt.Errorf("register needs an interactive terminal")
	}
	rt, err := Bootstrap()
	if err != nil {
		return err
	}
	defer rt.Close()

	username, err := promptLine("username: ")
	if err != nil {
		return err
	}
	email := args.Email
	if email == "" {
		email, err = promptLine("email: ")
		if err != nil {
			return err
		}
	}
	password, err := readPassword("password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	user, err := rt.Session.Register(context.Background(), auth.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return err
	}
	fmt.Printf("account %s created - run `aetheris login` to sign in\n", user.Username)
	return nil
}
