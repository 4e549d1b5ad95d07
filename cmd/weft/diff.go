package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weft-dev/weft"
	"github.com/weft-dev/weft/pkg/htmlgen"
	"github.com/weft-dev/weft/pkg/wire"
)

func diffCmd() *cobra.Command {
	var (
		mountID string
		format  string
		outPath string
		noHTML  bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old-tree.json> <new-tree.json>",
		Short: "Reconcile two tree files and print the patch script",
		Long: `Diff mounts the old tree into a fresh context, reconciles the new
tree against it, and prints the resulting patch script.

Either file may be "-" for stdin (not both). Output formats:

  text     one patch per line (default)
  json     the full reconciliation result
  binary   the wire codec's script framing`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "-" && args[1] == "-" {
				return fmt.Errorf("only one input may be stdin")
			}
			oldTree, err := loadTree(args[0])
			if err != nil {
				return err
			}
			newTree, err := loadTree(args[1])
			if err != nil {
				return err
			}

			opts := []weft.Option{
				weft.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			}
			if !noHTML {
				gen := htmlgen.New(htmlgen.Config{})
				opts = append(opts, weft.WithMarkup(gen.MarkupFunc()))
			}
			r := weft.New(opts...)

			ctx := context.Background()
			if _, err := r.Reconcile(ctx, weft.DefaultContext, oldTree, mountID); err != nil {
				return fmt.Errorf("mounting old tree: %w", err)
			}
			res, err := r.Reconcile(ctx, weft.DefaultContext, newTree, mountID)
			if err != nil {
				return fmt.Errorf("reconciling new tree: %w", err)
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			switch format {
			case "text":
				for _, p := range res.Patches {
					fmt.Fprintln(out, p.String())
				}
				for _, d := range res.Diagnostics {
					warn("%s: %s", d.Code, d.Message)
				}
				info("%d patches, %d records, %v", res.Stats.Patches(), res.Stats.Records, res.Stats.Duration)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			case "binary":
				data := wire.EncodeScript(&wire.Script{Seq: 1, Patches: res.Patches})
				if _, err := out.Write(data); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (want text, json or binary)", format)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mountID, "mount", "app", "Surface container id the tree mounts into")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or binary")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&noHTML, "no-html", false, "Omit HTML stub payloads from INSERT/REPLACE patches")

	return cmd
}
