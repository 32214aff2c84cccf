package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "get [package...]",
		Short: "Resolve packages and download their archives into the staging directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), cmd, opts, args)
		},
	}
	bindSourceFlags(cmd, &opts)
	bindIndexFlags(cmd, &opts)
	bindFetchFlags(cmd, &opts)
	return cmd
}

func runGet(ctx context.Context, cmd *cobra.Command, opts pipelineOptions, args []string) error {
	service, err := opts.newService(cmd)
	if err != nil {
		return err
	}
	req, err := opts.getRequest(cmd, args)
	if err != nil {
		return err
	}
	result, err := service.Get(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d archives into %s\n", len(result.Archives), result.StagingDir)
	return nil
}
