package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/keys-pub/diary"
	"github.com/keys-pub/diary/auth"
	"github.com/keys-pub/diary/backup"
	"github.com/keys-pub/diary/migrate"
)

// Logger writes colored output to stderr.
type Logger struct {
	Verbose bool
	Debug   bool
}

func (l Logger) Debugf(msg string, args ...interface{}) {
	if l.Debug {
		fmt.Fprintf(os.Stderr, color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

func (l Logger) Infof(msg string, args ...interface{}) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(os.Stderr, color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Warningf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, color.RedString("[error] ")+msg+"\n", args...)
}

func setLoggers(l Logger) {
	diary.SetLogger(l)
	auth.SetLogger(l)
	migrate.SetLogger(l)
	backup.SetLogger(l)
}
