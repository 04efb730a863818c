package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/dataset"
	"github.com/me/gokite/pkg/model"
)

func newExportCmd() *cobra.Command {
	var bucket, prefix, region, endpoint string

	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Upload the partitions of a dataset to S3 as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if bucket == "" {
				return model.ConfigurationError("export", "--bucket is required")
			}
			ctx := cmd.Context()
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			up, err := dataset.NewS3Uploader(ctx, region, endpoint)
			if err != nil {
				return model.ConfigurationError("export", "%v", err)
			}
			objs, err := dataset.NewExporter(st, up, bucket, prefix, logger).Export(ctx, args[0])
			total := 0
			for _, o := range objs {
				total += o.Bytes
			}
			out := cmd.OutOrStdout()
			for _, o := range objs {
				fmt.Fprintf(out, "s3://%s/%s  %s\n", bucket, o.Key, humanize.Bytes(uint64(o.Bytes)))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Exported %d partitions of %s (%s)\n", len(objs), args[0], humanize.Bytes(uint64(total)))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "destination bucket")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix inside the bucket")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default from the environment)")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "S3-compatible endpoint URL")
	return cmd
}
