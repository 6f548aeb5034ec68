package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sile/mlmd"
)

var (
	putArtifactTypeID int64
	putArtifactName   string
	putArtifactURI    string
	putArtifactProps  []string
)

var putArtifactCmd = &cobra.Command{
	Use:   "put-artifact",
	Short: "Create an artifact of a registered type",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		props, err := parsePropertyValues(putArtifactProps)
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

		id, err := store.PostArtifact(ctx, mlmd.PostArtifactOptions{
			TypeID:     putArtifactTypeID,
			Name:       putArtifactName,
			URI:        putArtifactURI,
			State:      mlmd.ArtifactLive,
			Properties: props,
		})
		if err != nil {
			FatalError("put-artifact: %v", err)
		}
		fmt.Printf("artifact id: %d\n", id)
	},
}

func init() {
	putArtifactCmd.Flags().Int64Var(&putArtifactTypeID, "type-id", 0, "artifact type id (required)")
	putArtifactCmd.Flags().StringVar(&putArtifactName, "name", "", "artifact name")
	putArtifactCmd.Flags().StringVar(&putArtifactURI, "uri", "", "artifact URI")
	putArtifactCmd.Flags().StringArrayVar(&putArtifactProps, "prop", nil, "property as name=value, repeatable; values parse as int, then float, then string")
	_ = putArtifactCmd.MarkFlagRequired("type-id")
}

func parsePropertyValues(specs []string) (map[string]mlmd.PropertyValue, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	props := make(map[string]mlmd.PropertyValue, len(specs))
	for _, spec := range specs {
		name, raw, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("malformed --prop %q, want name=value", spec)
		}
		props[name] = inferPropertyValue(raw)
	}
	return props, nil
}

func inferPropertyValue(raw string) mlmd.PropertyValue {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return mlmd.IntValue(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return mlmd.DoubleValue(f)
	}
	return mlmd.StringValue(raw)
}
