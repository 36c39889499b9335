package main

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the diary file (backups are kept)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDiary()
		if err != nil {
			return err
		}
		if !resetYes {
			answer, err := readLine("Delete " + d.Path() + "? Type yes to confirm: ")
			if err != nil {
				return err
			}
			if strings.TrimSpace(answer) != "yes" {
				return errors.Errorf("reset cancelled")
			}
		}
		if err := d.Reset(); err != nil {
			return err
		}
		success("Removed %s", d.Path())
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <dir>",
	Short: "Move the diary file to another directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDiary()
		if err != nil {
			return err
		}
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		from := d.Path()
		if err := d.Move(dir); err != nil {
			return err
		}
		if cfg.MoveJournal(from, d.Path()) > 0 {
			if err := cfg.Save(configPath); err != nil {
				return err
			}
		}
		success("Moved to %s", d.Path())
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "don't ask for confirmation")
}
