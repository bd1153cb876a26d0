package main

import (
	"encoding/json"
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/reglet-dev/dome-sdk/application/schema"
)

// NewManifestCmd creates the manifest subcommand.
func NewManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest <plugin>",
		Short: "Print the manifest of a bundled plugin as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, r, err := lookupPlugin(args[0])
			if err != nil {
				return err
			}
			if err := r.Validate(); err != nil {
				return oops.Code("MANIFEST_INVALID").With("plugin", args[0]).
					Wrapf(err, "plugin %s", args[0])
			}
			b, err := json.MarshalIndent(r.Manifest(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal manifest: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}

// NewSchemaCmd creates the schema subcommand.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of plugin manifests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := schema.ManifestSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
}
