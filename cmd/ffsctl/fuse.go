//go:build fuse

package main

import (
	"context"
	"os"
	"os/signal"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/spf13/cobra"

	ffs "github.com/embeddedfs/flashfs"
)

func fuseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fuse <mountpoint>",
		Short: "Mount the image read/write over FUSE for interactive inspection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fsys, closeFn, err := openImage()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			server, err := ffs.Mount(ctx, fsys, args[0], &gofs.Options{})
			if err != nil {
				return err
			}
			log.WithField("mountpoint", args[0]).Info("mounted, press ctrl-c to unmount")
			server.Wait()
			return nil
		},
	}
}

func init() {
	registerFuseCmd = fuseCmd
}
