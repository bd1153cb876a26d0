package main

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/dome-sdk/application/config"
	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/examples/external"
	"github.com/reglet-dev/dome-sdk/examples/synth"
)

// bundledPlugins builds a fresh instance of each example plugin.
var bundledPlugins = map[string]func() (plugin.Hooks, *plugin.Registrar){
	"external": func() (plugin.Hooks, *plugin.Registrar) {
		return external.Hooks(), external.Registrar()
	},
	"synth": func() (plugin.Hooks, *plugin.Registrar) {
		p := synth.NewPlugin()
		return p.Hooks(), p.Registrar()
	},
}

func pluginNames() string {
	names := make([]string, 0, len(bundledPlugins))
	for name := range bundledPlugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func lookupPlugin(name string) (plugin.Hooks, *plugin.Registrar, error) {
	newPlugin, ok := bundledPlugins[name]
	if !ok {
		return plugin.Hooks{}, nil, oops.
			Code("PLUGIN_UNKNOWN").
			With("plugin", name).
			Errorf("unknown plugin %q (available: %s)", name, pluginNames())
	}
	hooks, r := newPlugin()
	return hooks, r, nil
}

// NewRootCmd creates the root command for the domesim CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domesim",
		Short: "Run DOME plugins against a simulated host",
		Long: `domesim loads a bundled example plugin into an in-memory DOME host,
runs its lifecycle hooks and optional Lua scenarios, and prints the
plugin's manifest or the manifest JSON schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	d := config.Default()
	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML config file")
	pf.String("log.format", d.Log.Format, "log format (text or json)")
	pf.String("log.level", d.Log.Level, "log level (debug, info, warn or error)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewManifestCmd())
	cmd.AddCommand(NewSchemaCmd())

	return cmd
}

func newLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// logError logs err with its oops code and context when it carries them.
func logError(logger *slog.Logger, msg string, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, "error", err)
		return
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
