package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Carmen-Shannon/oxy-morph/engine/kernels"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Resolve the blend kernel and print its entry point, workgroup and bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := kernels.SharedResolver(kernels.WithConfig(a.cfg.Kernels))
			km, err := res.Resolve()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "kernel:      %s\n", km.Name)
			fmt.Fprintf(out, "bundle:      %s\n", km.Bundle)
			fmt.Fprintf(out, "path:        %s\n", res.Path())
			fmt.Fprintf(out, "entry point: %s\n", km.EntryPoint)
			fmt.Fprintf(out, "workgroup:   %d x %d x %d\n", km.Workgroup[0], km.Workgroup[1], km.Workgroup[2])
			fmt.Fprintf(out, "max targets: %d\n", km.MaxTargetCount)
			fmt.Fprintf(out, "spir-v:      %d bytes\n\n", len(km.SPIRV))

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tBINDING\tNAME\tSPACE\tTYPE\tSIZE")
			for _, b := range km.Bindings {
				typeName := b.TypeName
				if b.RuntimeSized {
					typeName = "array<" + typeName + ">"
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%d\n", b.Group, b.Binding, b.Name, b.Space, typeName, b.Size)
			}
			return tw.Flush()
		},
	}
}
