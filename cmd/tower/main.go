package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signaltower/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌┬┐┌─┐┬ ┬┌─┐┬─┐
   │ │ ││││├┤ ├┬┘
   ┴ └─┘└┴┘└─┘┴└─
`

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	serverURL  string
	jsonOutput bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "tower",
		Short: "In-process signal tower with an inspection server",
		Long: `tower runs a signal tower: a registry of named channels that memorize
their latest payload and replay it to late subscribers.

'tower serve' hosts a registry behind an HTTP/WebSocket inspection
server. The other commands talk to a running server:

  • list channels and their latest payloads
  • dispatch payloads from the command line
  • raise, lower or reset dispatch logging
  • capture and archive snapshots`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to tower.json (default: nearest tower.json)")
	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Server URL (default from tower.json)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON output")

	rootCmd.AddCommand(
		serveCmd(opts),
		channelsCmd(opts),
		dispatchCmd(opts),
		logLevelCmd(opts),
		snapshotCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

// printBanner prints the tower ASCII art banner.
func printBanner(w io.Writer) {
	fmt.Fprint(w, banner)
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
