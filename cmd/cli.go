package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"unidown/internal/config"
	"unidown/internal/platform"
)

var flagPlatform string

// errNotResolved makes `extract` exit non-zero after printing diagnostics.
var errNotResolved = errors.New("no extractor resolved the input")

var extractCmd = &cobra.Command{
	Use:   "extract <input>",
	Short: "Resolve one link and print the result as JSON",
	Example: `  unidown extract https://www.bilibili.com/video/BV1aBcD56789
  unidown extract -p youtube dQw4w9WgXcQ`,
	Args: cobra.ExactArgs(1),
	RunE: extractRun,
}

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List enabled extractors in dispatch order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dispatcher, _, err := newDispatcher(cfg, logger)
		if err != nil {
			return err
		}
		for _, name := range dispatcher.Registry().ListPlatforms() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show every configuration key with its default and environment variable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tDEFAULT\tENV\tDESCRIPTION")
		for _, f := range config.Defaults {
			fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", f.Key, f.Value, f.Env(), f.Description)
		}
		return w.Flush()
	},
}

func init() {
	extractCmd.Flags().StringVarP(&flagPlatform, "platform", "p", "", "Only try this extractor (see `unidown platforms`)")
}

func extractRun(cmd *cobra.Command, args []string) error {
	dispatcher, _, err := newDispatcher(cfg, logger)
	if err != nil {
		return err
	}

	registry := dispatcher.Registry()
	if flagPlatform != "" && registry.GetExtractorByName(flagPlatform) == nil {
		return fmt.Errorf("unknown platform %q, available: %v", flagPlatform, registry.ListPlatforms())
	}

	ectx := platform.ExtractContext{RequestURL: &url.URL{Scheme: "cli"}}
	var outcome platform.Outcome
	if flagPlatform != "" {
		outcome = dispatcher.DispatchTo(cmd.Context(), flagPlatform, args[0], ectx)
	} else {
		outcome = dispatcher.Dispatch(cmd.Context(), args[0], ectx)
	}
	logger.Debug(platform.Describe(outcome))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if info, ok := outcome.Left(); ok {
		return enc.Encode(info)
	}
	diag, _ := outcome.Right()
	if err := enc.Encode(diag); err != nil {
		return err
	}
	return errNotResolved
}
