package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/keys-pub/diary"
	"github.com/keys-pub/diary/auth"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var label string

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a diary protected by a password",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDiary()
		if err != nil {
			return err
		}
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		if _, err := d.Create(auth.Password(password), label); err != nil {
			return err
		}
		defer d.Lock()
		success("Created %s", d.Path())
		return nil
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Check that a credential unlocks the diary (runs pending upgrades)",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		success("Unlocked")
		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen <path>",
	Short: "Generate a key file and register it as an authentication method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		info, pk, err := d.GenerateKeyFile(args[0], label)
		if err != nil {
			return err
		}
		success("Wrote %s (slot %d)", args[0], info.ID)
		fmt.Println(pk.String())
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <slot-id>",
	Short: "Change the password of a password slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		old, err := readPassword("Current password for slot: ")
		if err != nil {
			return err
		}
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		if err := d.ChangePassword(id, old, password); err != nil {
			return err
		}
		success("Password changed")
		return nil
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Manage authentication methods",
}

var slotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authentication methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		slots, err := d.ListSlots()
		if err != nil {
			return err
		}
		for _, s := range slots {
			lastUsed := "never"
			if s.LastUsed != nil {
				lastUsed = s.LastUsed.Format(time.RFC3339)
			}
			fmt.Printf("%s\t%s\t%s\tcreated %s\tlast used %s\n",
				color.CyanString("%d", s.ID), s.Kind, s.Label, s.CreatedAt.Format(time.RFC3339), lastUsed)
		}
		return nil
	},
}

var slotsAddPasswordCmd = &cobra.Command{
	Use:   "add-password",
	Short: "Add a password",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		password, err := readNewPassword()
		if err != nil {
			return err
		}
		info, err := d.RegisterPassword(password, label)
		if err != nil {
			return err
		}
		success("Added slot %d", info.ID)
		return nil
	},
}

var slotsAddKeyCmd = &cobra.Command{
	Use:   "add-key <public-key-hex>",
	Short: "Add a key file by its public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pk, err := auth.ParsePublicKey(strings.TrimSpace(args[0]))
		if err != nil {
			return err
		}
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		info, err := d.RegisterSlot(pk, label)
		if err != nil {
			return err
		}
		success("Added slot %d", info.ID)
		return nil
	},
}

var slotsRemoveCmd = &cobra.Command{
	Use:   "remove <slot-id>",
	Short: "Remove an authentication method",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		if err := d.RemoveSlot(id); err != nil {
			return err
		}
		success("Removed slot %d", id)
		return nil
	},
}

var slotsRenameCmd = &cobra.Command{
	Use:   "rename <slot-id> <label>",
	Short: "Rename an authentication method",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		return d.RenameSlot(id, args[1])
	},
}

var (
	entryTitle string
	entryText  string
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Read and write entries",
}

var entryWriteCmd = &cobra.Command{
	Use:   "write <date>",
	Short: "Write the entry for a date (YYYY-MM-DD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		return d.SaveEntry(&diary.Entry{Date: args[0], Title: entryTitle, Text: entryText})
	},
}

var entryShowCmd = &cobra.Command{
	Use:   "show <date>",
	Short: "Show the entry for a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		entry, err := d.Entry(args[0])
		if err != nil {
			return err
		}
		if entry == nil {
			return errors.Errorf("no entry for %s", args[0])
		}
		color.New(color.Bold).Println(entry.Title)
		fmt.Println(entry.Text)
		return nil
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entry dates",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDiary()
		if err != nil {
			return err
		}
		defer d.Lock()
		dates, err := d.EntryDates()
		if err != nil {
			return err
		}
		for _, date := range dates {
			fmt.Println(date)
		}
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid slot id %q", s)
	}
	return id, nil
}

func init() {
	createCmd.Flags().StringVar(&label, "label", "", "slot label")
	keygenCmd.Flags().StringVar(&label, "label", "", "slot label")
	slotsAddPasswordCmd.Flags().StringVar(&label, "label", "", "slot label")
	slotsAddKeyCmd.Flags().StringVar(&label, "label", "", "slot label")

	slotsCmd.AddCommand(slotsListCmd)
	slotsCmd.AddCommand(slotsAddPasswordCmd)
	slotsCmd.AddCommand(slotsAddKeyCmd)
	slotsCmd.AddCommand(slotsRemoveCmd)
	slotsCmd.AddCommand(slotsRenameCmd)

	entryWriteCmd.Flags().StringVar(&entryTitle, "title", "", "entry title")
	entryWriteCmd.Flags().StringVar(&entryText, "text", "", "entry text")
	entryCmd.AddCommand(entryWriteCmd)
	entryCmd.AddCommand(entryShowCmd)
	entryCmd.AddCommand(entryListCmd)
}
