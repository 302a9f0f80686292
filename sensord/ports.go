package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/itohio/sensord/pkg/sensor"
)

func newPortsCommand(_ *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List available serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := sensor.Ports()
			if err != nil {
				return err
			}
			return writePorts(cmd.OutOrStdout(), ports)
		},
	}
}

func writePorts(w io.Writer, ports []sensor.PortInfo) error {
	if len(ports) == 0 {
		_, err := fmt.Fprintln(w, "no serial ports found")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tDESCRIPTION\tUSB ID")
	for _, p := range ports {
		id := "-"
		if p.IsUSB {
			id = p.VID + ":" + p.PID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Description, id)
	}
	return tw.Flush()
}
