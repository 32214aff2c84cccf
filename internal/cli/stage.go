package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debstage/internal/app"
)

func newStageCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "stage [package...]",
		Short: "Fetch packages and unpack them into the root in one step",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd.Context(), cmd, opts, args)
		},
	}
	bindSourceFlags(cmd, &opts)
	bindIndexFlags(cmd, &opts)
	bindFetchFlags(cmd, &opts)
	bindUnpackFlags(cmd, &opts)
	cmd.Flags().StringVar(&opts.TargetRoot, "target", "", "Unpack into this directory instead of the root")
	_ = viper.BindPFlag("target", cmd.Flags().Lookup("target"))
	return cmd
}

func runStage(ctx context.Context, cmd *cobra.Command, opts pipelineOptions, args []string) error {
	service, err := opts.newService(cmd)
	if err != nil {
		return err
	}
	req, err := opts.getRequest(cmd, args)
	if err != nil {
		return err
	}
	result, err := service.Stage(ctx, app.StageRequest{
		GetRequest: req,
		TargetRoot: resolveString(cmd, opts.TargetRoot, "target", "target"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "staged %d archives into %s (%d symlinks repaired)\n",
		len(result.Unpack.Report.Archives), result.Unpack.Root, result.Unpack.Report.RepairedSymlinks)
	return nil
}
