package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	getArtifactsTypeName string
	getArtifactsLimit    int
)

var getArtifactsCmd = &cobra.Command{
	Use:   "get-artifacts",
	Short: "List artifacts, optionally filtered by type name",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := withTimeout()
		defer cancel()
		store, shutdown, err := connect(ctx)
		if err != nil {
			FatalError("connect: %v", err)
		}
		defer shutdown(ctx)
		defer store.Close()

		q := store.ArtifactQuery()
		if getArtifactsTypeName != "" {
			q = q.WithTypeName(getArtifactsTypeName)
		}
		if getArtifactsLimit > 0 {
			q = q.WithLimit(getArtifactsLimit)
		}
		artifacts, err := q.Execute(ctx)
		if err != nil {
			FatalError("get-artifacts: %v", err)
		}
		for _, a := range artifacts {
			fmt.Printf("%d\t%s\t%s\tstate=%d\n", a.ID, a.Name, a.URI, a.State)
		}
	},
}

func init() {
	getArtifactsCmd.Flags().StringVar(&getArtifactsTypeName, "type-name", "", "filter by type name")
	getArtifactsCmd.Flags().IntVar(&getArtifactsLimit, "limit", 0, "maximum rows to return")
}
