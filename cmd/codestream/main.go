// codestream - streaming code generation relay and client.
//
// Run a relay, send it a prompt, watch the generated files arrive live.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "codestream",
	Short: "codestream - streaming code generation",
	Long: `codestream relays AI code generation as a live frame stream and
reassembles it into files on the client.

  codestream serve                         Start the relay server
  codestream gen "add a healthcheck"       Generate and watch files arrive
  codestream gen "why tabs?" --mode ask    Ask a question, stream the answer
  codestream sessions                      List archived sessions
  codestream show <id>                     Show an archived session's files`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("CODESTREAM_SERVER", "http://localhost:7080"), "relay server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
