package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"coupon-scheduler/pkg/client"
	apperrors "coupon-scheduler/pkg/errors"

	"github.com/urfave/cli/v3"
)

type clientAction func(ctx context.Context, cmd *cli.Command, c *client.Client) error

// withClient restores the persisted session, runs fn and writes the session
// back. A session cleared by fn (logout or 401) removes the file.
func withClient(fn clientAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		path, err := sessionPath(cmd)
		if err != nil {
			return err
		}
		session, err := loadSession(path)
		if err != nil {
			return err
		}

		c := client.New(cmd.String("server"), session)
		runErr := fn(ctx, cmd, c)
		if err := saveSession(path, session); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}
}

func sessionPath(cmd *cli.Command) (string, error) {
	if p := cmd.String("session"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "couponctl", "session.json"), nil
}

func loadSession(path string) (*client.Session, error) {
	session := client.NewSession()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var data client.SessionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", path, err)
	}
	session.Restore(data)
	return session, nil
}

func saveSession(path string, session *client.Session) error {
	data, ok := session.Snapshot()
	if !ok {
		if session.State() == client.StateCleared {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove session: %w", err)
			}
		}
		return nil
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func requireLogin(c *client.Client) error {
	if c.Session().State() != client.StatePopulated {
		return errors.New("not logged in, run: couponctl login")
	}
	return nil
}

// describe renders field errors one per line so they read like a form.
func describe(err error) string {
	fields, ok := apperrors.Fields(err)
	if !ok {
		if errors.Is(err, apperrors.ErrAuthExpired) {
			return "session expired, run: couponctl login"
		}
		return err.Error()
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("invalid input")
	for _, k := range keys {
		for _, msg := range fields[k] {
			fmt.Fprintf(&b, "\n  %s: %s", k, msg)
		}
	}
	return b.String()
}

func writer(cmd *cli.Command) io.Writer {
	return cmd.Root().Writer
}
