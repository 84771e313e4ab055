package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"grab-go/internal/app"
	"grab-go/internal/config"
	"grab-go/internal/grab"
	"grab-go/internal/monitor"
	"grab-go/internal/policyserver"
	"grab-go/internal/version"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a GrabApp. The caller must defer app.Close().
func newApp(ctx context.Context, cmd *cobra.Command) (*app.GrabApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewGrabApp(ctx, cfg, stderrLevel(cmd))
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

func stderrLevel(cmd *cobra.Command) slog.Level {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// wantJSON reports whether output should be JSON: when asked for, or when
// stdout is not a terminal (the host app is reading it).
func wantJSON(cmd *cobra.Command) bool {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:   "grab",
	Short: "Screen-region QR/OCR utility: version policy tools",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadEnv()
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		policyURL, _ := cmd.Flags().GetString("policy-url")
		if policyURL == "" {
			policyURL = os.Getenv("GRAB_POLICY_URL")
		}

		// Get application defaults
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		// Generate a new install ID
		installID := uuid.New().String()

		cfg := config.NewConfig(installID, defaults["base_dir"], defaults["cache_dir"], policyURL)

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Install ID: %s\n", installID)
		fmt.Printf("Base Dir:   %s\n", defaults["base_dir"])
		fmt.Printf("Cache Dir:  %s\n", defaults["cache_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Install ID: %s\n", cfg.InstallID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Policy URL: %s\n", cfg.Policy.URL)
		fmt.Printf("Cache:      %s (%s)\n", cfg.Cache.Type, cfg.Cache.Dir)
		return nil
	},
}

// checkOutput is the JSON contract between `grab check` and the host app.
type checkOutput struct {
	CheckID         string `json:"checkId"`
	Status          string `json:"status"`
	Action          string `json:"action"`
	Message         string `json:"message,omitempty"`
	DownloadURL     string `json:"downloadUrl,omitempty"`
	UserVersion     string `json:"userVersion"`
	LatestVersion   string `json:"latestVersion"`
	UpdateAvailable bool   `json:"updateAvailable"`
	IsOffline       bool   `json:"isOffline"`
	CacheAgeSeconds int64  `json:"cacheAgeSeconds"`
	CacheExpired    bool   `json:"cacheExpired"`
	FailureReason   string `json:"failureReason,omitempty"`
}

func newCheckOutput(res *grab.VersionCheckResult) (checkOutput, app.Decision) {
	d := app.Decide(res)
	return checkOutput{
		CheckID:         res.CheckID,
		Status:          string(res.Status),
		Action:          string(d.Action),
		Message:         d.Message,
		DownloadURL:     d.DownloadURL,
		UserVersion:     res.UserVersion,
		LatestVersion:   res.Config.LatestVersion,
		UpdateAvailable: d.UpdateAvailable,
		IsOffline:       res.IsOffline,
		CacheAgeSeconds: int64(res.CacheAge.Seconds()),
		CacheExpired:    res.CacheExpired,
		FailureReason:   string(res.FailureReason),
	}, d
}

// check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the running version against the policy",
	Long: "Fetches the version policy, falling back to the cache when offline, and\n" +
		"prints the startup decision. Exit status: 0 proceed, 10 warn, 20 block.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}

		out, d := newCheckOutput(a.Check(ctx))
		if wantJSON(cmd) {
			err = writeJSON(os.Stdout, out)
		} else {
			printCheck(out)
		}

		if cerr := a.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		if code := d.ExitCode(); code != app.ExitProceed {
			os.Exit(code)
		}
		return nil
	},
}

func printCheck(out checkOutput) {
	fmt.Printf("Status:  %s (%s)\n", out.Status, out.Action)
	fmt.Printf("Version: %s (latest %s)\n", out.UserVersion, out.LatestVersion)
	if out.IsOffline {
		fmt.Printf("Offline: policy is %ds old", out.CacheAgeSeconds)
		if out.FailureReason != "" {
			fmt.Printf(" (%s)", out.FailureReason)
		}
		fmt.Println()
	}
	if out.Message != "" {
		fmt.Printf("\n%s\n", out.Message)
	}
	if out.DownloadURL != "" && out.Action != string(app.ActionProceed) {
		fmt.Printf("Download: %s\n", out.DownloadURL)
	}
}

// compare command
var compareCmd = &cobra.Command{
	Use:   "compare A B",
	Short: "Compare two versions",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		switch grab.CompareVersions(args[0], args[1]) {
		case -1:
			fmt.Printf("%s < %s\n", args[0], args[1])
		case 1:
			fmt.Printf("%s > %s\n", args[0], args[1])
		default:
			fmt.Printf("%s = %s\n", args[0], args[1])
		}
	},
}

// cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the policy cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached policy record",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctrl := a.Controller()
		rec := ctrl.GetCachedConfig()
		data, err := grab.EncodeCacheRecord(&rec)
		if err != nil {
			return err
		}

		fmt.Println(string(data))
		if !wantJSON(cmd) {
			fmt.Printf("\nLocation:      %s\n", ctrl.CachePath())
			fmt.Printf("Needs refresh: %t\n", ctrl.ShouldCheckForUpdates())
		}
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the policy cache is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Println(a.Controller().CachePath())
		return nil
	},
}

// policy command
var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Author and serve policy documents",
}

var policyValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Validate a policy document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading policy: %w", err)
		}

		p, err := grab.ParsePolicyDocument(data)
		if err != nil {
			return err
		}

		fmt.Printf("%s is valid\n", args[0])
		fmt.Printf("  minimum %s, latest %s, kill switch %t\n", p.MinimumVersion, p.LatestVersion, p.IsKillSwitchActive)
		fmt.Printf("  %d deprecated, %d force-update\n", len(p.DeprecatedVersions), len(p.ForceUpdateVersions))
		return nil
	},
}

var policyServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a policy file over HTTP for development",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		addr, _ := cmd.Flags().GetString("addr")

		if file == "" || addr == "" {
			// Fall back to the [server] section when a config exists.
			if defaults, err := app.GetDefaults(); err == nil {
				if cfg, err := config.ReadFromFile(defaults["config_path"]); err == nil {
					if file == "" {
						file = cfg.Server.PolicyFile
					}
					if addr == "" {
						addr = cfg.Server.Addr
					}
				}
			}
		}
		if file == "" {
			return fmt.Errorf("--file is required")
		}
		if addr == "" {
			addr = config.DefaultServerAddr
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: stderrLevel(cmd)}))
		srv := policyserver.New(file, app.NewGrabLogger(logger))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(os.Stderr, "Serving %s at http://%s%s\n", file, addr, policyserver.PolicyPath)
		return policyserver.ListenAndServe(ctx, addr, srv.Handler())
	},
}

// monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Keep checking and print a JSON line per status update",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		interval, err := a.Config().Monitor.IntervalDuration()
		if err != nil {
			return err
		}

		m := monitor.New(a.Controller(), monitor.Options{
			Interval:   interval,
			WatchCache: a.Config().Monitor.WatchCache,
		}, app.NewGrabLogger(a.Logger()))

		errCh := make(chan error, 1)
		go func() { errCh <- m.Run(ctx) }()

		enc := json.NewEncoder(os.Stdout)
		for u := range m.Updates() {
			out, _ := newCheckOutput(u.Result)
			if err := enc.Encode(struct {
				Source string `json:"source"`
				checkOutput
			}{string(u.Source), out}); err != nil {
				return err
			}
		}
		return <-errCh
	},
}

// version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.FullVersion())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Echo debug logs to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("policy-url", "", "Policy URL (http(s)://, s3:// or file://)")

	// cache subcommands
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cachePathCmd)
	cacheShowCmd.Flags().Bool("json", false, "Print only the record")

	// policy subcommands
	policyCmd.AddCommand(policyValidateCmd)
	policyCmd.AddCommand(policyServeCmd)
	policyServeCmd.Flags().StringP("file", "f", "", "Policy file to serve")
	policyServeCmd.Flags().String("addr", "", "Listen address (default "+config.DefaultServerAddr+")")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("json", false, "Print JSON even on a terminal")
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(policyCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(versionCmd)
}
