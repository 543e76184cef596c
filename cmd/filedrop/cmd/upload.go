package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CaioWing/filedrop/internal/client"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files to the server",
	Long:  "Upload one or more local files in parallel. Each upload is attempted once.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().Int("concurrency", 4, "maximum parallel uploads")
	viper.BindPFlag("concurrency", uploadCmd.Flags().Lookup("concurrency"))
}

func runUpload(cmd *cobra.Command, args []string) error {
	c := client.New(serverURL())
	out := cmd.OutOrStdout()

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(max(viper.GetInt("concurrency"), 1)).WithContext(cmd.Context()).WithCancelOnError()

	for _, path := range args {
		p.Go(func(ctx context.Context) error {
			stored, err := c.Upload(ctx, path)
			if err != nil {
				return err
			}
			mu.Lock()
			fmt.Fprintf(out, "%s\t%d\t%s\n", stored.Name, stored.Size, stored.Checksum)
			mu.Unlock()
			return nil
		})
	}

	return p.Wait()
}
