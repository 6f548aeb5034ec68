package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sile/mlmd"
)

var (
	putTypeKind          string
	putTypeVersion       string
	putTypeDescription   string
	putTypeProperties    []string
	putTypeCanAddFields  bool
	putTypeCanOmitFields bool
)

var putTypeCmd = &cobra.Command{
	Use:   "put-type [name]",
	Short: "Register or evolve a type",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		kind, err := parseTypeKind(putTypeKind)
		if err != nil {
			FatalError("%v", err)
		}
		props, err := parsePropertySpecs(putTypeProperties)
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

		id, err := store.PutType(ctx, mlmd.PutTypeOptions{
			Kind:          kind,
			Name:          args[0],
			Version:       putTypeVersion,
			Description:   putTypeDescription,
			Properties:    props,
			CanAddFields:  putTypeCanAddFields,
			CanOmitFields: putTypeCanOmitFields,
		})
		if err != nil {
			FatalError("put-type: %v", err)
		}
		fmt.Printf("type id: %d\n", id)
	},
}

func init() {
	putTypeCmd.Flags().StringVar(&putTypeKind, "kind", "artifact", "type kind: artifact, execution, or context")
	putTypeCmd.Flags().StringVar(&putTypeVersion, "version", "", "type version (optional)")
	putTypeCmd.Flags().StringVar(&putTypeDescription, "description", "", "type description")
	putTypeCmd.Flags().StringArrayVar(&putTypeProperties, "property", nil, "declared property as name:int|double|string, repeatable")
	putTypeCmd.Flags().BoolVar(&putTypeCanAddFields, "can-add-fields", false, "allow adding new properties to an existing type")
	putTypeCmd.Flags().BoolVar(&putTypeCanOmitFields, "can-omit-fields", false, "allow omitting previously declared properties")
}

func parseTypeKind(s string) (mlmd.TypeKind, error) {
	switch strings.ToLower(s) {
	case "artifact":
		return mlmd.ArtifactTypeKind, nil
	case "execution":
		return mlmd.ExecutionTypeKind, nil
	case "context":
		return mlmd.ContextTypeKind, nil
	default:
		return 0, fmt.Errorf("unknown type kind %q (want artifact, execution, or context)", s)
	}
}

func parsePropertySpecs(specs []string) (map[string]mlmd.PropertyDataType, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	props := make(map[string]mlmd.PropertyDataType, len(specs))
	for _, spec := range specs {
		name, dt, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("malformed --property %q, want name:type", spec)
		}
		switch strings.ToLower(dt) {
		case "int":
			props[name] = mlmd.Int
		case "double":
			props[name] = mlmd.Double
		case "string":
			props[name] = mlmd.String
		default:
			return nil, fmt.Errorf("unknown property type %q in %q", dt, spec)
		}
	}
	return props, nil
}
