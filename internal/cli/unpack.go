package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"debstage/internal/app"
)

func newUnpackCommand() *cobra.Command {
	opts := pipelineOptions{}
	cmd := &cobra.Command{
		Use:   "unpack",
		Short: "Extract staged archives into the root and repair absolute symlinks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUnpack(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Root, "root", "", "Root directory to extract into")
	cmd.Flags().StringVar(&opts.StagingDir, "staging-dir", "", "Archive staging directory (defaults to <root>/download)")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "Show progress bars")
	_ = viper.BindPFlag("root", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("staging_dir", cmd.Flags().Lookup("staging-dir"))
	_ = viper.BindPFlag("progress", cmd.Flags().Lookup("progress"))
	bindUnpackFlags(cmd, &opts)
	return cmd
}

func runUnpack(ctx context.Context, cmd *cobra.Command, opts pipelineOptions) error {
	service, err := opts.newService(cmd)
	if err != nil {
		return err
	}
	result, err := service.Unpack(ctx, app.UnpackRequest{
		Root:       resolveString(cmd, opts.Root, "root", "root"),
		StagingDir: resolveString(cmd, opts.StagingDir, "staging_dir", "staging-dir"),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "unpacked %d archives into %s (%d symlinks repaired)\n",
		len(result.Report.Archives), result.Root, result.Report.RepairedSymlinks)
	return nil
}
