// Package main is the docmerge command line: list, render and batch-merge
// templates without running the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/docmerge/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "docmerge",
	Short: "Render document templates with placeholder data",
	Long: `docmerge discovers templates in a directory or SQLite database, resolves
placeholders and renders them through an engine: "print" produces PDF and
DOCX, "email" produces an RFC 822 message and standalone HTML.

Settings come from flags, ./docmerge.yaml or DOCMERGE_* environment
variables, in that order of precedence.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./docmerge.yaml or ~/.config/docmerge/config.yaml)")
	flags.String("template-dir", "./templates", "directory of template files")
	flags.String("template-db", "", "SQLite template database")
	flags.String("cache", "memory", "artifact cache: memory, sqlite or none")
	flags.String("cache-db", "", "SQLite artifact cache path")
	flags.String("wkhtmltopdf", "", "wkhtmltopdf binary (default: looked up in PATH)")
	flags.String("email-from", "", "sender address for the email engine")
	flags.Bool("verbose", false, "log debug output to stderr")

	for _, name := range []string{"template-dir", "template-db", "cache", "cache-db", "wkhtmltopdf", "email-from", "verbose"} {
		_ = viper.BindPFlag(name, flags.Lookup(name))
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docmerge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docmerge"))
		}
	}

	viper.SetEnvPrefix("DOCMERGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// cliConfig maps viper settings onto the shared configuration.
func cliConfig() config.Config {
	return config.Config{
		TemplateDir:         viper.GetString("template-dir"),
		TemplateDB:          viper.GetString("template-db"),
		CacheBackend:        strings.ToLower(viper.GetString("cache")),
		CacheMaxEntries:     1000,
		CacheDB:             viper.GetString("cache-db"),
		WkhtmltopdfPath:     viper.GetString("wkhtmltopdf"),
		EmailFrom:           viper.GetString("email-from"),
		WorkerCount:         1,
		MaxQueueSize:        1,
		MaxConcurrentRender: 4,
		JobTTL:              time.Hour,
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
