package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Manage the list of journals in the config",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journals",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, j := range cfg.Journals {
			marker := " "
			if j.ID == cfg.Active {
				marker = color.GreenString("*")
			}
			fmt.Printf("%s %s\t%s\t%s\n", marker, j.ID, j.Name, j.Path)
		}
		return nil
	},
}

var journalAddCmd = &cobra.Command{
	Use:   "add <name> <path>",
	Short: "Add a journal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		j, err := cfg.AddJournal(args[0], path)
		if err != nil {
			return err
		}
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		success("Added journal %s", j.ID)
		return nil
	},
}

var journalRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a journal from the list (keeps the diary file)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RemoveJournal(args[0]); err != nil {
			return err
		}
		return cfg.Save(configPath)
	},
}

var journalRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a journal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RenameJournal(args[0], args[1]); err != nil {
			return err
		}
		return cfg.Save(configPath)
	},
}

var journalUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Set the active journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.SetActive(args[0]); err != nil {
			return err
		}
		return cfg.Save(configPath)
	},
}

func init() {
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalRemoveCmd)
	journalCmd.AddCommand(journalRenameCmd)
	journalCmd.AddCommand(journalUseCmd)
}
