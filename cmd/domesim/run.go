package main

import (
	"fmt"
	"math"
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/dome-sdk/application/config"
	"github.com/reglet-dev/dome-sdk/application/plugin"
	"github.com/reglet-dev/dome-sdk/testing/domehost"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load a plugin, run frames and an optional Lua scenario",
		Long: `Load a bundled plugin into the simulated host, run the requested number
of frames, then the Lua scenario if one is given, and unload the plugin.
Every line the plugin logged to DOME is printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return runSim(cmd, cfg)
		},
	}

	d := config.Default()
	f := cmd.Flags()
	f.String("plugin", "", "bundled plugin to load ("+pluginNames()+")")
	f.Int("frames", d.Frames, "number of frames to run")
	f.Float64("dt", d.DeltaTime, "delta time passed to the draw hooks, in seconds")
	f.String("script", "", "Lua scenario to run after the frames")
	f.Int("mix_samples", d.MixSamples, "stereo samples to mix after each frame")

	return cmd
}

func runSim(cmd *cobra.Command, cfg config.Simulator) error {
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	hooks, _, err := lookupPlugin(cfg.Plugin)
	if err != nil {
		return err
	}

	h := domehost.New(domehost.WithLogger(logger))
	d := plugin.NewDispatcher(plugin.WithHooks(hooks), plugin.WithLogger(logger))
	if res := h.Load(d); !res.OK() {
		printLogs(cmd, h)
		return oops.Code("PLUGIN_INIT").With("plugin", cfg.Plugin).
			Errorf("plugin %s: init returned %s", cfg.Plugin, res)
	}
	logger.Debug("plugin loaded", "plugin", cfg.Plugin, "modules", h.Modules())

	peak, runErr := simulate(h, d, cfg)
	res := h.Unload(d)

	printLogs(cmd, h)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "plugin %s: %d modules, %d frames\n", cfg.Plugin, len(h.Modules()), cfg.Frames)
	if cfg.MixSamples > 0 {
		fmt.Fprintf(out, "audio peak %.3f\n", peak)
	}

	if runErr != nil {
		return runErr
	}
	if !res.OK() {
		return oops.Code("PLUGIN_SHUTDOWN").With("plugin", cfg.Plugin).
			Errorf("plugin %s: shutdown returned %s", cfg.Plugin, res)
	}
	return nil
}

// simulate runs the frames and the scenario and returns the loudest sample
// mixed.
func simulate(h *domehost.Host, d *plugin.Dispatcher, cfg config.Simulator) (float64, error) {
	var peak float64
	for i := range cfg.Frames {
		if err := h.Frame(d, cfg.DeltaTime); err != nil {
			return peak, oops.Code("FRAME_FAILED").With("frame", i).Wrapf(err, "frame %d", i)
		}
		if cfg.MixSamples > 0 {
			for _, s := range h.MixAudio(cfg.MixSamples) {
				peak = math.Max(peak, math.Abs(float64(s)))
			}
		}
	}

	if cfg.Script == "" {
		return peak, nil
	}
	src, err := os.ReadFile(cfg.Script)
	if err != nil {
		return peak, oops.Code("SCRIPT_READ").With("script", cfg.Script).
			Wrapf(err, "failed to read script")
	}
	s, err := domehost.NewScript(h, d)
	if err != nil {
		return peak, err
	}
	defer s.Close()
	return peak, s.Run(string(src))
}

func printLogs(cmd *cobra.Command, h *domehost.Host) {
	out := cmd.OutOrStdout()
	for _, line := range h.Logs() {
		fmt.Fprintln(out, line)
	}
}
