package main

import (
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	dbPath  string
	backend string
	envFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:          "promptvault",
		Short:        "Save and organize prompts captured from AI chat sites",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (default ~/.promptvault/promptvault.db)")
	rootCmd.PersistentFlags().StringVar(&g.backend, "backend", "", "storage backend: sqlite, redis or memory")
	rootCmd.PersistentFlags().StringVar(&g.envFile, "env-file", "", "dotenv file to load (default .env)")

	rootCmd.AddCommand(serveCmd(g))
	rootCmd.AddCommand(addCmd(g))
	rootCmd.AddCommand(listCmd(g))
	rootCmd.AddCommand(showCmd(g))
	rootCmd.AddCommand(editCmd(g))
	rootCmd.AddCommand(rmCmd(g))
	rootCmd.AddCommand(foldersCmd(g))
	rootCmd.AddCommand(tagsCmd(g))
	rootCmd.AddCommand(prefsCmd(g))
	rootCmd.AddCommand(exportCmd(g))
	rootCmd.AddCommand(importCmd(g))
	rootCmd.AddCommand(captureCmd(g))
	rootCmd.AddCommand(watchCmd(g))

	return rootCmd
}
