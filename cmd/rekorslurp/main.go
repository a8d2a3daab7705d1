package main

import (
	"fmt"
	"os"

	"github.com/chtzvt/rekorslurp/cmd/rekorslurp/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	interval int
)

var rootCmd = &cobra.Command{
	Use:   "rekorslurp",
	Short: "rekorslurp follows a Rekor transparency log and extracts Fulcio certificate identities",
	Long: `rekorslurp polls a Rekor transparency log for newly committed entries, decodes the
signing certificate carried by each entry and writes the subject and Fulcio
provenance extensions as one record per entry.

Records are extracted passively. Entries, certificates and signatures are NOT
verified against the log's signed tree head or any trust root, so the output
must not be used for trust decisions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cfgFile, cmd.Flags())
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		return runPoller(cmdContext(), cfg, newLogger())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $PWD/rekorslurp.yaml)")
	rootCmd.Flags().IntVarP(&interval, "interval", "i", 3, "polling interval in seconds")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
