package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/promptvault/internal/capture"
	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/export"
	"github.com/pbaille/promptvault/internal/fetcher"
)

func exportCmd(g *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all prompts, folders and tags to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if output == "-" {
				_, err := a.exporter().WriteTo(ctx, cmd.OutOrStdout())
				return err
			}

			var buf bytes.Buffer
			doc, err := a.exporter().WriteTo(ctx, &buf)
			if err != nil {
				return err
			}
			if output == "" {
				output = export.Filename(doc.ExportDate)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d prompts to %s\n", len(doc.Prompts), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, or - for stdout (default prompt_vault_export_DATE.json)")
	return cmd
}

func importCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Add the contents of an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.exporter().Import(ctx, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d prompts (%d new folders, %d new tags)\n", res.Prompts, res.Folders, res.Tags)
			return nil
		},
	}
}

func captureCmd(g *globalFlags) *cobra.Command {
	var (
		file    string
		pageURL string
	)

	cmd := &cobra.Command{
		Use:   "capture [url|file]",
		Short: "Save the latest exchange from a chat page",
		Long: `Save the latest prompt and response from a chat page.

Either fetch the page by URL, or read a page saved from the browser with
--file. An argument that is not a URL but names an existing file is read
as a saved page. For saved pages the URL is read from the file when --url
is omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) == 0 {
				return errors.New("give a URL or --file")
			}
			path := file
			if path == "" && savedPage(args[0]) {
				path = args[0]
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			var p *domain.Prompt
			if path != "" {
				p, err = captureFile(ctx, a.capturer(), path, pageURL)
			} else {
				p, err = a.capturer().CaptureURL(ctx, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Captured prompt %d from %s: %s\n", p.ID, p.Source, p.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "saved HTML page to read instead of fetching")
	cmd.Flags().StringVar(&pageURL, "url", "", "page URL for --file (default: read from the page)")
	return cmd
}

// savedPage reports whether arg names a local file rather than a URL
func savedPage(arg string) bool {
	if fetcher.IsURL(arg) {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}

func captureFile(ctx context.Context, c *capture.Capturer, path, pageURL string) (*domain.Prompt, error) {
	page, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if pageURL == "" {
		pageURL = capture.SourceURL(page)
	}
	if pageURL == "" {
		return nil, fmt.Errorf("%s has no source URL; pass --url", filepath.Base(path))
	}
	return c.Capture(ctx, pageURL, bytes.NewReader(page))
}

func watchCmd(g *globalFlags) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Capture every chat page saved into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			w, err := capture.NewWatcher(a.capturer(), args[0], capture.WithDebounce(debounce))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w.OnCapture = func(path string, p *domain.Prompt, err error) {
				if err != nil {
					fmt.Fprintf(out, "  skipped %s: %v\n", filepath.Base(path), err)
					return
				}
				fmt.Fprintf(out, "  + %d %s (%s)\n", p.ID, truncate(p.Title, 60), p.Source)
			}

			fmt.Fprintf(out, "Watching %s for saved chat pages (Ctrl-C to stop)\n", args[0])
			return w.Run(ctx)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", capture.DefaultDebounce, "quiet period before a file is read")
	return cmd
}
