package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"debstage/internal/types"
)

func newPlanCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "plan [package...]",
		Short: "Show which packages would be fetched and which are assumed present",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), cmd, opts, args)
		},
	}
	bindSourceFlags(cmd, &opts)
	bindIndexFlags(cmd, &opts)
	return cmd
}

func runPlan(ctx context.Context, cmd *cobra.Command, opts pipelineOptions, args []string) error {
	service, err := opts.newService(cmd)
	if err != nil {
		return err
	}
	req, err := opts.getRequest(cmd, args)
	if err != nil {
		return err
	}
	result, err := service.Plan(ctx, req)
	if err != nil {
		return err
	}
	printSelection(cmd.OutOrStdout(), result.Selection)
	return nil
}

func printSelection(out io.Writer, selection types.Selection) {
	for _, name := range selection.Installs() {
		fmt.Fprintf(out, "install %s %s\n", name, selection.Versions[name])
	}
	for _, event := range selection.Events {
		if !event.Pulled {
			continue
		}
		fmt.Fprintf(out, "keep %s (%s)\n", event.Package, event.Reason)
	}
}
