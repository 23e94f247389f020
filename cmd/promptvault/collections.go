package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/router"
	"github.com/pbaille/promptvault/internal/store"
)

func foldersCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List folders with prompt counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.store.Snapshot(ctx)
			if err != nil {
				return err
			}

			counts := store.FolderCounts(snap.Prompts)
			unfiled := 0
			for _, p := range snap.Prompts {
				if p.FolderID == nil {
					unfiled++
				}
			}

			out := cmd.OutOrStdout()
			for _, f := range snap.Folders {
				fmt.Fprintf(out, "%4d  %-24s %d\n", f.ID, f.Name, counts[f.ID])
			}
			fmt.Fprintf(out, "%4s  %-24s %d\n", "-", "(unfiled)", unfiled)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add [name]",
		Short: "Create a folder",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.call(ctx, router.Request{Action: router.ActionCreateFolder, Name: strings.Join(args, " ")})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created folder %d: %s\n", resp.Folder.ID, resp.Folder.Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a folder; its prompts become unfiled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.call(ctx, router.Request{Action: router.ActionDeleteFolder, ID: id}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %d\n", id)
			return nil
		},
	})

	return cmd
}

func tagsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.call(ctx, router.Request{Action: router.ActionGetTags})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Tags) == 0 {
				fmt.Fprintln(out, "No tags yet. Use 'promptvault tags add' to create one.")
				return nil
			}
			for _, t := range resp.Tags {
				fmt.Fprintf(out, "%4d  %-24s %s\n", t.ID, t.Name, t.Color)
			}
			return nil
		},
	}

	var color string
	addCmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Create a tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.call(ctx, router.Request{
				Action: router.ActionCreateTag,
				Name:   strings.Join(args, " "),
				Color:  color,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created tag %d: %s (%s)\n", resp.Tag.ID, resp.Tag.Name, resp.Tag.Color)
			return nil
		},
	}
	addCmd.Flags().StringVarP(&color, "color", "c", "", "hex color (default "+domain.DefaultTagColor+")")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a tag and remove it from every prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.call(ctx, router.Request{Action: router.ActionDeleteTag, ID: id}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag %d\n", id)
			return nil
		},
	})

	return cmd
}

// prefKeys are the preference fields settable from the command line
var prefKeys = map[string]string{
	"includetags":       "includeTags",
	"includetimestamps": "includeTimestamps",
	"exportasjson":      "exportAsJson",
}

func prefsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.call(ctx, router.Request{Action: router.ActionGetPreferences})
			if err != nil {
				return err
			}
			printPrefs(cmd, resp.Preferences)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set key=value...",
		Short: "Update preferences (includeTags, includeTimestamps, exportAsJson)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parsePrefs(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.call(ctx, router.Request{Action: router.ActionUpdatePreferences, Preferences: patch})
			if err != nil {
				return err
			}
			printPrefs(cmd, resp.Preferences)
			return nil
		},
	})

	return cmd
}

func parsePrefs(args []string) (domain.Patch, error) {
	patch := domain.Patch{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		field, known := prefKeys[strings.ToLower(key)]
		if !known {
			keys := make([]string, 0, len(prefKeys))
			for _, k := range prefKeys {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return nil, fmt.Errorf("unknown preference %q (want one of %s)", key, strings.Join(keys, ", "))
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", field, value)
		}
		patch.Set(field, b)
	}
	return patch, nil
}

func printPrefs(cmd *cobra.Command, p *domain.Preferences) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "includeTags:       %t\n", p.IncludeTags)
	fmt.Fprintf(out, "includeTimestamps: %t\n", p.IncludeTimestamps)
	fmt.Fprintf(out, "exportAsJson:      %t\n", p.ExportAsJSON)
	if p.LastBackup != nil {
		fmt.Fprintf(out, "lastBackup:        %s\n", p.LastBackup.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Fprintln(out, "lastBackup:        never")
	}
}
