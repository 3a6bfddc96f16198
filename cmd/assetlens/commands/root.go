package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/config"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/engine"
	"github.com/GeorgeMcIntyre-Web/AssetLens/pkg/version"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// app carries what every subcommand shares: the config source and flags.
type app struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCmd builds the assetlens command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	rootCmd := &cobra.Command{
		Use:   "assetlens",
		Short: "Review detections and build bills of materials",
		Long: `AssetLens - detection review and BOM tooling

Validate. Review. Export.`,
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "Config file (default ~/.assetlens.yaml)")
	flags.String("local-dir", "", "Local review cache directory")
	flags.String("canonical-url", "", "Canonical review store (s3://bucket/prefix, dynamodb://table, https://host/api)")
	flags.String("region", config.DefaultRegion, "AWS Region")
	flags.Bool("log-json", true, "Log as JSON")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	bind(a.v, flags, map[string]string{
		"review.local_dir":     "local-dir",
		"review.canonical_url": "canonical-url",
		"aws.region":           "region",
		"log.json":             "log-json",
		"log.level":            "log-level",
	})

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		renderHelp(cmd.OutOrStdout(), cmd)
	})

	rootCmd.AddCommand(
		newValidateCmd(a),
		newBOMCmd(a),
		newExportCmd(a),
		newReviewCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

// bind maps config keys to flags. Only flags set on the command line
// override the config file.
func bind(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.SetConfigFile(filepath.Join(home, ".assetlens.yaml"))
		a.v.SetConfigType("yaml")
	}
	a.v.SetEnvPrefix("ASSETLENS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !(errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func (a *app) engine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, err
	}
	return engine.New(cmd.Context(), engine.WithConfig(cfg))
}

// closeEngine flushes telemetry, keeping the command's own error first.
func closeEngine(cmd *cobra.Command, eng *engine.Engine, errp *error) {
	if err := eng.Close(cmd.Context()); err != nil && *errp == nil {
		*errp = err
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF99")).
			MarginBottom(1)
	flagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF99")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0055")).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B"))
)

func renderHelp(w io.Writer, cmd *cobra.Command) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("ASSETLENS %s", version.Current)))
	if cmd.Long != "" {
		fmt.Fprintln(w, cmd.Long)
	} else {
		fmt.Fprintln(w, cmd.Short)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, titleStyle.Render("USAGE"))
	fmt.Fprintf(w, "  %s\n\n", cmd.UseLine())

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintln(w, titleStyle.Render("COMMANDS"))
		for _, c := range cmd.Commands() {
			if c.IsAvailableCommand() {
				fmt.Fprintf(w, "  %-12s %s\n", c.Name(), c.Short)
			}
		}
		fmt.Fprintln(w)
	}

	if cmd.Example != "" {
		fmt.Fprintln(w, titleStyle.Render("EXAMPLES"))
		fmt.Fprintln(w, cmd.Example)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, titleStyle.Render("FLAGS"))
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		output := fmt.Sprintf("  --%-15s %s", f.Name, f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			output += fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintln(w, flagStyle.Render(output))
	})
	fmt.Fprintln(w)
}
