package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/seca-scan/internal/application"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List the available probes and the keys accepted by --only",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		container, err := application.NewContainer(appCtx.Config.Scan.settings(), nil)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tPROBE\tDESCRIPTION")
		for _, reg := range container.Orchestrator.Registrations() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", reg.Key, reg.Probe.Name(), reg.Description)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nAlias: ssl -> tls")
		return nil
	},
}
