package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taxonid/internal/idcodec"
)

func newIDCommand() *cobra.Command {
	idCmd := &cobra.Command{
		Use:         "id",
		Short:       "Convert between numeric and encoded stable ids",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	idCmd.AddCommand(newIDEncodeCommand())
	idCmd.AddCommand(newIDDecodeCommand())
	return idCmd
}

func newIDEncodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encode <number>...",
		Short: "Encode numeric ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				n, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid id %q: %w", arg, err)
				}
				fmt.Fprintf(out, "%d\t%s\n", n, idcodec.Encode(uint32(n)))
			}
			return nil
		},
	}
}

func newIDDecodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Decode encoded ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, arg := range args {
				n, err := idcodec.Decode(arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%d\n", arg, n)
			}
			return nil
		},
	}
}
