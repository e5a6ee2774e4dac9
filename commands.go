package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sagely-dev/sagely/internal/agent"
	"github.com/sagely-dev/sagely/internal/agent/introspect"
	"github.com/sagely-dev/sagely/internal/agent/model"
	"github.com/sagely-dev/sagely/internal/agent/settings"
	"github.com/sagely-dev/sagely/internal/agent/status"
	"github.com/sagely-dev/sagely/internal/agent/usage"
	logx "github.com/sagely-dev/sagely/pkg/logger"
)

type cli struct {
	cfg *AppConfig
	out io.Writer

	home    string
	noCache bool
	quiet   bool

	mgr     *settings.Manager
	closers []func() error
}

func newRootCmd(cfg *AppConfig, out io.Writer) *cobra.Command {
	c := &cli{cfg: cfg, out: out}

	root := &cobra.Command{
		Use:   "sagely",
		Short: "Ask questions about Go packages",
		Long: `sagely answers questions about Go packages by combining the package's
documentation and exported API, the most recent error and a Gemini model,
optionally backed by a web search.

Example:
  sagely ask net/http "How do I set a client timeout?"`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.home, "home", "", "Settings directory (default: $SAGELY_HOME or ~/.sagely)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "Ignore cached answers")
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "Hide status updates")

	root.AddCommand(
		c.askCmd(),
		c.inspectCmd(),
		c.usageCmd(),
		c.cacheCmd(),
		c.configCmd(),
	)
	return root
}

// loadSettings loads config.json and the environment once per invocation.
func (c *cli) loadSettings(ctx context.Context) (*settings.Manager, error) {
	if c.mgr != nil {
		return c.mgr, nil
	}

	home := c.home
	if home == "" {
		home = c.cfg.Home
	}
	if home == "" {
		home = settings.DefaultHome()
	}

	statusOut := c.out
	if c.quiet {
		statusOut = io.Discard
	}

	mgr := settings.New(home, settings.WithOutput(statusOut))
	if _, err := mgr.Load(); err != nil {
		return nil, err
	}
	if err := mgr.LoadFromEnv(); err != nil {
		return nil, err
	}

	if mgr.Options().CacheBackend == model.BackendRedis {
		rdb, err := c.cfg.Redis.New(ctx)
		if err != nil {
			logx.Warn().Err(err).Str("url", c.cfg.Redis.URL).Msg("redis unavailable, using file caches")
			mgr.Status().Printf(status.Warning, "Redis unavailable (%v), using file caches", err)
		} else {
			c.closers = append(c.closers, rdb.Close)
			mgr = settings.New(home, settings.WithOutput(statusOut), settings.WithRedis(rdb), settings.WithOptions(mgr.Options()))
		}
	}

	c.mgr = mgr
	return mgr, nil
}

func (c *cli) close() error {
	var first error
	for _, fn := range c.closers {
		if err := fn(); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

func (c *cli) askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <module> <question...>",
		Short: "Ask a question about a Go package",
		Long: `Ask a question about a Go package. The first word is the package import
path, the rest is the question. Answers are cached per package and question
unless --no-cache is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			line := strings.Join(args, " ")
			module, question, ok := agent.ParseMagicLine(line)
			if !ok {
				fmt.Fprintln(c.out, agent.MagicUsage)
				return nil
			}

			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			a, err := agent.New(cmd.Context(), mgr, agent.WithOutput(c.out))
			if err != nil {
				return err
			}
			if c.noCache {
				return a.Ask(cmd.Context(), module, question, nil, false)
			}
			return a.Magic(cmd.Context(), line)
		},
	}
}

func (c *cli) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module>",
		Short: "Print the package summary the assistant works from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			if c.noCache {
				mgr.ClearModuleCache(args[0])
			}
			analyzer := introspect.NewAnalyzer(introspect.PackagesLoader{}, mgr, mgr.Status())
			text, _ := analyzer.Analyze(cmd.Context(), args[0])
			fmt.Fprintln(c.out, text)
			return nil
		},
	}
}

func (c *cli) usageCmd() *cobra.Command {
	var (
		modelName string
		recent    int
		sessions  bool
	)
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show token usage of the latest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			dir := mgr.UsageDir()

			if sessions {
				files := usage.SessionFiles(dir)
				if len(files) == 0 {
					fmt.Fprintln(c.out, "No usage sessions recorded")
				}
				for _, f := range files {
					fmt.Fprintln(c.out, filepath.Base(f))
				}
				return nil
			}

			t := usage.Latest(dir)
			if modelName != "" {
				total := t.ModelTotal(modelName)
				fmt.Fprintf(c.out, "%s: %d requests, %d input, %d output, %d total tokens\n",
					modelName, t.RequestCount(modelName), total.InputTokens, total.OutputTokens, total.TotalTokens)
			} else {
				fmt.Fprintln(c.out, t.Summary())
			}

			if recent > 0 {
				entries := t.Recent(recent)
				if modelName != "" {
					entries = t.RecentForModel(modelName, recent)
				}
				fmt.Fprintf(c.out, "\nRecent requests:\n")
				for _, u := range entries {
					fmt.Fprintf(c.out, "  %s  %-20s %-16s %d in / %d out / %d total\n",
						u.Timestamp.Format("2006-01-02 15:04:05"), u.ModelName, u.RequestType,
						u.InputTokens, u.OutputTokens, u.TotalTokens)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelName, "model", "", "Only show usage for this model")
	cmd.Flags().IntVar(&recent, "recent", 0, "List the last n requests")
	cmd.Flags().BoolVar(&sessions, "sessions", false, "List recorded session files, newest first")
	return cmd
}

func (c *cli) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response and module caches",
	}

	var module string
	clearCmd := &cobra.Command{
		Use:       "clear [all|response|module]",
		Short:     "Clear cached answers and package summaries",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"all", settings.CacheResponse, settings.CacheModule},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			if module != "" {
				mgr.ClearModuleCache(module)
				return nil
			}
			kind := settings.CacheAll
			if len(args) == 1 {
				kind = args[0]
			}
			return mgr.ClearCaches(kind)
		},
	}
	clearCmd.Flags().StringVar(&module, "module", "", "Only clear the module cache entry of this package")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			if rc := mgr.ResponseCache(); rc != nil {
				fmt.Fprintf(c.out, "Response cache entries: %d\n", rc.Len())
			} else {
				fmt.Fprintln(c.out, "Response cache: disabled")
			}
			if mc := mgr.ModuleCache(); mc != nil {
				fmt.Fprintf(c.out, "Module cache entries: %d\n", mc.Len())
			} else {
				fmt.Fprintln(c.out, "Module cache: disabled")
			}
			return nil
		},
	}

	cmd.AddCommand(clearCmd, stats)
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and change settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Config file: %s\n", mgr.ConfigPath())
			for _, k := range settings.Keys() {
				v, _ := mgr.Get(k)
				fmt.Fprintf(c.out, "  %-24s %s\n", k, settings.Describe(k, v))
			}
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key=value>...",
		Short: "Change settings and save them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				if err := mgr.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
					return err
				}
			}
			return mgr.Save()
		},
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Write the effective settings, including environment overrides, to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			return mgr.Save()
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default settings, keeping API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := c.loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			if err := mgr.Reset(); err != nil {
				return err
			}
			return mgr.Save()
		},
	}

	cmd.AddCommand(show, set, save, reset)
	return cmd
}
