// Command swing-trader is the CLI for the swing trade manager.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"swing-trader/internal/cli"
	"swing-trader/internal/config"
	"swing-trader/internal/logging"
)

func main() {
	// .env is optional, env vars may come from the shell or CI.
	_ = godotenv.Load()

	configDir := peekConfigDir(os.Args[1:])
	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// peekConfigDir extracts --config before cobra parses flags, so the
// config is loaded once and handed to the command tree.
func peekConfigDir(args []string) string {
	flags := pflag.NewFlagSet("bootstrap", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Usage = func() {}
	configDir := flags.String("config", "", "")
	flags.BoolP("help", "h", false, "")
	_ = flags.Parse(args)
	return *configDir
}
