package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newDetectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "detect MESSAGE",
		Short: "Check whether a message would be saved as an intent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			det, err := loadDetector()
			if err != nil {
				return err
			}
			res := det.Detect(strings.Join(args, " "))
			out := struct {
				Triggered  bool   `json:"triggered"`
				Suppressed bool   `json:"suppressed"`
				Rule       string `json:"rule,omitempty"`
				Text       string `json:"text,omitempty"`
			}{res.Triggered, res.Suppressed(), res.Rule, res.Text}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			w := cmd.OutOrStdout()
			switch {
			case !res.Triggered:
				fmt.Fprintln(w, "no trigger")
			case res.Suppressed():
				fmt.Fprintf(w, "trigger %q matched but nothing worth saving; the assistant would ask what to remember\n", res.Rule)
			default:
				fmt.Fprintf(w, "trigger %q: would save %q\n", res.Rule, res.Text)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
