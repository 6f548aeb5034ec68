package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getTypesKind string

var getTypesCmd = &cobra.Command{
	Use:   "get-types",
	Short: "List registered types of one kind",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parseTypeKind(getTypesKind)
		if err != nil {
			FatalError("%v", err)
		}

		ctx, cancel := withTimeout()
		defer cancel()
		store, shutdown, err := connect(ctx)
		if err != nil {
			FatalError("connect: %v", err)
		}
		defer shutdown(ctx)
		defer store.Close()

		types, err := store.GetTypesByKind(ctx, kind)
		if err != nil {
			FatalError("get-types: %v", err)
		}
		for _, t := range types {
			fmt.Printf("%d\t%s\t%s\n", t.ID, t.Name, t.Version)
		}
	},
}

func init() {
	getTypesCmd.Flags().StringVar(&getTypesKind, "kind", "artifact", "type kind: artifact, execution, or context")
}
