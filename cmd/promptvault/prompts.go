package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/promptvault/internal/domain"
	"github.com/pbaille/promptvault/internal/router"
	"github.com/pbaille/promptvault/internal/store"
)

func addCmd(g *globalFlags) *cobra.Command {
	var (
		title    string
		response string
		folder   string
		tags     []string
		source   string
	)

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Save a new prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, g)
			if err != nil {
				return err
			}
			defer a.Close()

			in := domain.NewPrompt{
				Title:        title,
				PromptText:   strings.Join(args, " "),
				ResponseText: response,
				Source:       source,
			}
			if folder != "" {
				folders, err := a.store.ListFolders(ctx)
				if err != nil {
					return err
				}
				id, err := resolveFolder(folders, folder)
				if err != nil {
					return err
				}
				in.FolderID = &id
			}
			if len(tags) > 0 {
				all, err := a.store.ListTags(ctx)
				if err != nil {
					return err
				}
				if in.TagIDs, err = resolveTags(all, tags); err != nil {
					return err
				}
			}

			data, err := jsonRaw(in)
			if err != nil {
				return err
			}
			resp, err := a.call(ctx, router.Request{Action: router.ActionSavePrompt, Data: data})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added prompt %d: %s\n", resp.Prompt.ID, resp.Prompt.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "title (default: first 50 characters of the text)")
	cmd.Flags().StringVarP(&response, "response", "r", "", "response text")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "folder name or id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag name or id (repeatable)")
	cmd.Flags().StringVar(&source, "source", "", "origin of the prompt (default manual)")
	return cmd
}

func listCmd(g *globalFlags) *cobra.Command {
	var (
		folder string
		tag    string
		search string
		oldest bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved prompts, newest first",
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

			f := store.Filter{Query: search, OldestFirst: oldest, Limit: limit}
			if folder != "" {
				id, err := resolveFolder(snap.Folders, folder)
				if err != nil {
					return err
				}
				f.FolderID = &id
			}
			if tag != "" {
				id, err := resolveTag(snap.Tags, tag)
				if err != nil {
					return err
				}
				f.TagID = &id
			}

			prompts := store.FilterPrompts(snap.Prompts, f)
			out := cmd.OutOrStdout()
			if len(prompts) == 0 {
				fmt.Fprintln(out, "No prompts found. Use 'promptvault add' or 'promptvault capture' to save one.")
				return nil
			}

			names := newNames(snap)
			for _, p := range prompts {
				line := fmt.Sprintf("%4d  %s  %s", p.ID, p.CreatedAt.Local().Format("2006-01-02"), truncate(p.Title, 60))
				if p.FolderID != nil {
					line += "  [" + names.folder(*p.FolderID) + "]"
				}
				for _, name := range names.tags(p.TagIDs) {
					line += "  #" + name
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", "", "only prompts in this folder")
	cmd.Flags().StringVar(&tag, "tag", "", "only prompts with this tag")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match title or prompt text")
	cmd.Flags().BoolVar(&oldest, "oldest", false, "oldest first")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of prompts to show (0 for all)")
	return cmd
}

func showCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a prompt",
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

			resp, err := a.call(ctx, router.Request{Action: router.ActionGetPrompt, ID: id})
			if err != nil {
				return err
			}
			snap, err := a.store.Snapshot(ctx)
			if err != nil {
				return err
			}
			names := newNames(snap)
			p := resp.Prompt

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:      %d\n", p.ID)
			fmt.Fprintf(out, "Title:   %s\n", p.Title)
			fmt.Fprintf(out, "Source:  %s\n", p.Source)
			fmt.Fprintf(out, "Created: %s\n", p.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if p.FolderID != nil {
				fmt.Fprintf(out, "Folder:  %s\n", names.folder(*p.FolderID))
			}
			if tags := names.tags(p.TagIDs); len(tags) > 0 {
				fmt.Fprintf(out, "Tags:    %s\n", strings.Join(tags, ", "))
			}
			fmt.Fprintf(out, "\nPrompt:\n%s\n", p.PromptText)
			if p.ResponseText != "" {
				fmt.Fprintf(out, "\nResponse:\n%s\n", p.ResponseText)
			}
			return nil
		},
	}
}

func editCmd(g *globalFlags) *cobra.Command {
	var (
		title    string
		text     string
		response string
		folder   string
		noFolder bool
		tags     []string
	)

	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change fields of a prompt",
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

			flags := cmd.Flags()
			patch := domain.Patch{}
			if flags.Changed("title") {
				patch.Set("title", title)
			}
			if flags.Changed("text") {
				patch.Set("promptText", text)
			}
			if flags.Changed("response") {
				patch.Set("responseText", response)
			}
			switch {
			case noFolder:
				patch.Set("folderId", nil)
			case folder != "":
				folders, err := a.store.ListFolders(ctx)
				if err != nil {
					return err
				}
				fid, err := resolveFolder(folders, folder)
				if err != nil {
					return err
				}
				patch.Set("folderId", fid)
			}
			if flags.Changed("tag") {
				all, err := a.store.ListTags(ctx)
				if err != nil {
					return err
				}
				ids, err := resolveTags(all, tags)
				if err != nil {
					return err
				}
				patch.Set("tagIds", ids)
			}
			if len(patch) == 0 {
				return fmt.Errorf("nothing to change")
			}

			resp, err := a.call(ctx, router.Request{Action: router.ActionUpdatePrompt, ID: id, Prompt: patch})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated prompt %d: %s\n", resp.Prompt.ID, resp.Prompt.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVar(&text, "text", "", "new prompt text")
	cmd.Flags().StringVarP(&response, "response", "r", "", "new response text")
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "move to folder (name or id)")
	cmd.Flags().BoolVar(&noFolder, "no-folder", false, "remove from its folder")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags (repeatable; empty to clear)")
	cmd.MarkFlagsMutuallyExclusive("folder", "no-folder")
	return cmd
}

func rmCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a prompt",
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

			if _, err := a.call(ctx, router.Request{Action: router.ActionDeletePrompt, ID: id}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %d\n", id)
			return nil
		},
	}
}

// names resolves folder and tag ids for display
type names struct {
	folders map[int64]string
	tagMap  map[int64]string
}

func newNames(snap *store.Snapshot) names {
	n := names{
		folders: make(map[int64]string, len(snap.Folders)),
		tagMap:  make(map[int64]string, len(snap.Tags)),
	}
	for _, f := range snap.Folders {
		n.folders[f.ID] = f.Name
	}
	for _, t := range snap.Tags {
		n.tagMap[t.ID] = t.Name
	}
	return n
}

func (n names) folder(id int64) string {
	if name, ok := n.folders[id]; ok {
		return name
	}
	return fmt.Sprintf("folder %d", id)
}

func (n names) tags(ids []int64) []string {
	var out []string
	for _, id := range ids {
		if name, ok := n.tagMap[id]; ok {
			out = append(out, name)
		}
	}
	return out
}
