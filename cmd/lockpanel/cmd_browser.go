// This file contains browser lifecycle commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockpanel/internal/browser"
)

var browserHeadless bool

// browserCmd manages the shared Chrome instance.
var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Browser lifecycle commands",
}

// browserLaunchCmd starts Chrome and persists its control URL so later
// `watch` runs attach to it instead of launching their own instance.
var browserLaunchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch the browser instance and persist its control URL",
	RunE:  browserLaunch,
}

func init() {
	browserCmd.AddCommand(browserLaunchCmd)
	browserLaunchCmd.Flags().BoolVar(&browserHeadless, "headless", false, "Run Chrome headless")
}

func controlFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".lockpanel", "browser", "control.txt"), nil
}

// writeControlFile persists the control URL, creating the directory on first
// use.
func writeControlFile(controlURL string) error {
	path, err := controlFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(controlURL), 0o644); err != nil {
		return fmt.Errorf("write control file: %w", err)
	}
	return nil
}

func readControlFile() (string, error) {
	path, err := controlFilePath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func browserLaunch(cmd *cobra.Command, args []string) error {
	logger.Info("Launching browser")

	cfg := browser.DefaultConfig()
	cfg.Headless = browserHeadless
	mgr := browser.NewManager(cfg, logger)
	if err := mgr.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}

	if err := writeControlFile(mgr.ControlURL()); err != nil {
		// Later watch runs cannot attach without it, so say so.
		logger.Warn("failed to persist browser control file", zap.Error(err))
	}

	fmt.Printf("Browser launched. Control URL: %s\n", mgr.ControlURL())
	fmt.Println("Press Ctrl+C to shutdown")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if path, err := controlFilePath(); err == nil {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove browser control file", zap.Error(err))
		}
	}
	if err := mgr.Shutdown(); err != nil {
		logger.Warn("failed to shutdown browser", zap.Error(err))
	}
	return nil
}
