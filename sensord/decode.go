package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/itohio/sensord/pkg/frame"
)

type decodeOptions struct {
	*rootOptions
	JSON bool
}

// decodedFrame is the JSON form of one decode result.
type decodedFrame struct {
	Frame   frame.Frame      `json:"frame"`
	Kind    string           `json:"kind"`
	Reading *frame.Reading   `json:"reading,omitempty"`
	Code    *frame.FaultCode `json:"code,omitempty"`
	Reason  *frame.Reason    `json:"reason,omitempty"`
}

func newDecodeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &decodeOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <hex-frame>...",
		Short: "Classify frames given as hex",
		Long: `Classify one or more frames given as hex strings.

Spaces and colons inside a frame are ignored.

Example:
  sensord decode aa0004d202d8ff
  sensord decode "aa 03 00 00 00 03 ff" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frames := make([]frame.Frame, 0, len(args))
			for _, arg := range args {
				f, err := frame.Parse(arg)
				if err != nil {
					return err
				}
				frames = append(frames, f)
			}
			return writeDecoded(cmd.OutOrStdout(), frames, opts.JSON)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print one JSON object per frame")

	return cmd
}

func writeDecoded(w io.Writer, frames []frame.Frame, asJSON bool) error {
	enc := json.NewEncoder(w)
	for _, f := range frames {
		ev := frame.Classify(f)
		if !asJSON {
			if _, err := fmt.Fprintf(w, "%s\t%s\n", f, ev); err != nil {
				return err
			}
			continue
		}

		out := decodedFrame{Frame: f, Kind: ev.Kind.String()}
		switch ev.Kind {
		case frame.Accepted:
			out.Reading = &ev.Reading
		case frame.SensorError:
			out.Code = &ev.Code
		case frame.Malformed:
			out.Reason = &ev.Reason
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
