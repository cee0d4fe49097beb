// ratengine: a unified multi-protocol server framework (HTTP/1.1, HTTP/2,
// and gRPC on one or more ports) with built-in certificate lifecycle
// management.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.ratengine.dev/ratengine/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "ratengine",
		Short: "Unified multi-protocol server framework",
		Long: `ratengine serves HTTP/1.1, HTTP/2 (h2c and TLS), and gRPC from a
single process, with path routing, CORS, mTLS, and automated certificate
provisioning (self-signed, static, or ACME DNS-01).

Run "ratengine serve" to start a server from a config file or flags.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ratengine %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
