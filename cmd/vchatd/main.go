package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/vchat/internal/daemon"
	"github.com/matheus3301/vchat/internal/session"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	profile := session.Resolve(*profileFlag)
	if err := session.ValidateName(profile); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := zapcore.InfoLevel
	if *debugFlag {
		level = zapcore.DebugLevel
	}

	app := fx.New(
		daemon.Module(daemon.Params{Profile: profile, LogLevel: level}),
	)

	app.Run()
}
