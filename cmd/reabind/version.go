package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reabind version and, with --host, the host's",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "reabind %s\n", version)

		host, _ := cmd.Flags().GetBool("host")
		constraint, _ := cmd.Flags().GetString("require")
		if !host && constraint == "" {
			return nil
		}

		s, err := envFrom(cmd).connect(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		v, err := s.client.HostVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "host %s\n", v)
		if constraint != "" {
			return s.client.CheckHostVersion(cmd.Context(), constraint)
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().Bool("host", false, "Also print the connected host's version")
	versionCmd.Flags().String("require", "", "Fail unless the host satisfies this semver constraint")
	rootCmd.AddCommand(versionCmd)
}
