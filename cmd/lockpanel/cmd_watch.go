package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lockpanel/internal/browser"
	"lockpanel/internal/hostapi"
	"lockpanel/internal/panel"
	"lockpanel/internal/watch"
)

var (
	watchAPIBase  string
	watchToken    string
	watchHeadless bool
)

// watchCmd runs the full live pipeline: open the pull-request page in
// Chrome, diff the lockfile between the two branches, and keep the panel
// injected until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch <pull-request-url>",
	Short: "Inject a durable lockfile diff panel into a live pull-request page",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAPIBase, "api", "", "Host API base URL (defaults to the public GitHub API)")
	watchCmd.Flags().StringVar(&watchToken, "token", os.Getenv("LOCKPANEL_TOKEN"), "Host API token")
	watchCmd.Flags().BoolVar(&watchHeadless, "headless", false, "Run Chrome headless")
}

func runWatch(cmd *cobra.Command, args []string) error {
	pageURL := args[0]
	pr, err := hostapi.ParsePullURL(pageURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := browser.DefaultConfig()
	cfg.Headless = watchHeadless
	cfg.NavigationTimeoutMs = int(timeout.Milliseconds())
	if controlURL, err := readControlFile(); err == nil && controlURL != "" {
		cfg.DebuggerURL = controlURL
		logger.Info("attaching to running browser", zap.String("control_url", controlURL))
	}

	mgr := browser.NewManager(cfg, logger)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	// Only shut the browser down if this process launched it.
	if cfg.DebuggerURL == "" {
		defer func() {
			if err := mgr.Shutdown(); err != nil {
				logger.Warn("browser shutdown failed", zap.Error(err))
			}
		}()
	}

	page, err := mgr.OpenPage(ctx, pageURL)
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	logger.Info("page opened", zap.String("url", pageURL), zap.String("page", page.ID()))

	store, err := loadSelectorStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	api := hostapi.NewClient(watchAPIBase, watchToken, logger)
	touched, err := watch.Run(ctx, watch.Options{
		Pull:      pr,
		Lockfile:  lockfilePath,
		API:       api,
		Doc:       page,
		Mutations: page,
		Selectors: store,
		Debounce:  panel.DefaultDebounce,
		Log:       logger,
	})
	if err != nil {
		return err
	}
	if !touched {
		fmt.Printf("No %s change in %s/%s#%d\n", lockfilePath, pr.Owner, pr.Repo, pr.Number)
	}
	return nil
}
