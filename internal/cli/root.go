package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tlsdeploy/tlsdeploy/internal/errors"
	"github.com/tlsdeploy/tlsdeploy/internal/logger"
)

var (
	jsonOutput bool
	verbose    bool
	version    = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tlsdeploy",
	Short: "TLS certificate provisioning and nginx deployment",
	Long: `tlsdeploy provisions TLS certificates (self-signed or ACME) and deploys
the nginx configuration that serves them.

Every configuration change is snapshotted first, syntax-checked, and only
then activated with a graceful reload. A failed check restores the
snapshot automatically; nginx keeps serving the previous configuration.

Exit codes: 0 success, 1 failure before activation, 2 validation failed
and the previous configuration was restored, 3 the restore itself failed.`,
}

// Execute runs the root command and exits with a code describing how
// far the run got.
func Execute() {
	// Initialize logger based on verbose flag (parsed by cobra)
	cobra.OnInitialize(func() {
		logger.Init(verbose)
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(errors.ExitCode(err))
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
}
