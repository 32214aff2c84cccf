package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"debstage/internal/app"
)

func newSourcesCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Print the sources list used to refresh the package index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSources(cmd.Context(), cmd, opts)
		},
	}
	bindSourceFlags(cmd, &opts)
	return cmd
}

func runSources(ctx context.Context, cmd *cobra.Command, opts pipelineOptions) error {
	service, err := opts.newService(cmd)
	if err != nil {
		return err
	}
	template, err := loadTemplate(resolveString(cmd, opts.SourcesFile, "sources", "sources"))
	if err != nil {
		return err
	}
	result, err := service.Sources(ctx, app.SourcesRequest{
		Template: template,
		Release:  resolveString(cmd, opts.Release, "release", "release"),
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Document)
	return nil
}
