package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/keys-pub/diary"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	verbose    bool
	debug      bool
	configPath string
	diaryPath  string
	keyFile    string

	cfg *config.Config

	stdin = bufio.NewReader(os.Stdin)

	rootCmd = &cobra.Command{
		Use:           "diary",
		Short:         "Encrypted local diary",
		Long:          `Create, unlock and manage an encrypted diary and its authentication methods (passwords and key files).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setLoggers(Logger{Verbose: verbose, Debug: debug})
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			return nil
		},
	}
)

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "diary", "config.toml")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "config file")
	rootCmd.PersistentFlags().StringVar(&diaryPath, "diary", "", "diary file (default is the active journal)")
	rootCmd.PersistentFlags().StringVar(&keyFile, "key-file", "", "unlock with a key file instead of a password")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(slotsCmd)
	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(moveCmd)
}

func resolvePath() (string, error) {
	if diaryPath != "" {
		return diaryPath, nil
	}
	j := cfg.ActiveJournal()
	if j == nil {
		return "", errors.Errorf("no diary, use --diary or add a journal")
	}
	return j.Path, nil
}

func newDiary() (*diary.Diary, error) {
	path, err := resolvePath()
	if err != nil {
		return nil, err
	}
	opts := []diary.Option{diary.WithKDF(cfg.AuthKDF())}
	if cfg.BackupsDir != "" {
		opts = append(opts, diary.WithBackups(cfg.BackupsDir, cfg.MaxBackups))
	}
	return diary.New(path, opts...)
}

// openDiary unlocks with --key-file or a prompted password.
// Callers must Lock.
func openDiary() (*diary.Diary, error) {
	d, err := newDiary()
	if err != nil {
		return nil, err
	}
	if keyFile != "" {
		if err := d.UnlockWithKeyFile(keyFile); err != nil {
			return nil, err
		}
		return d, nil
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return nil, err
	}
	if err := d.UnlockWithPassword(password); err != nil {
		return nil, err
	}
	return d, nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrapf(err, "failed to read password")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	os.Stderr.WriteString(prompt)
	b, err := term.ReadPassword(fd)
	os.Stderr.WriteString("\n")
	if err != nil {
		return "", errors.Wrapf(err, "failed to read password")
	}
	return string(b), nil
}

func readLine(prompt string) (string, error) {
	os.Stderr.WriteString(prompt)
	line, err := stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrapf(err, "failed to read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readNewPassword() (string, error) {
	password, err := readPassword("New password: ")
	if err != nil {
		return "", err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return password, nil
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", errors.Errorf("passwords don't match")
	}
	return password, nil
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, diary.ErrInvalidCredential):
		return "Credential not accepted"
	case errors.Is(err, diary.ErrLastSlotProtected):
		return "Cannot remove the last authentication method"
	case errors.Is(err, diary.ErrStateLockPoisoned):
		return "Internal error, please restart"
	case errors.Is(err, diary.ErrMigrationFailed):
		return "Diary upgrade failed and was rolled back: " + err.Error()
	case errors.Is(err, diary.ErrAlreadyExists):
		return "A diary already exists at this path"
	case errors.Is(err, diary.ErrNotFound):
		return "No diary found"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "Password must be at least 8 characters"
	default:
		return err.Error()
	}
}

func success(format string, args ...interface{}) {
	color.Green(format, args...)
}
