/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	serialstream "github.com/allbin/go-serialstream"
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals <port>",
	Short: "Display current modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the specified port.
The bugst driver cannot read back RTS and DTR; they are shown as n/a. The
tarm driver has no modem control.

Examples:
  serialstream signals /dev/ttyUSB0
  serialstream signals /dev/ttyACM0 --driver bugst

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		sess, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer sess.close()

		signals, err := sess.stream.ModemSignals(ctx)
		if err != nil {
			return err
		}
		printSignals(cmd.OutOrStdout(), portPath, signals, sess.driver != "bugst")
		return nil
	},
}

func printSignals(out io.Writer, path string, s serialstream.ModemSignals, outputs bool) {
	output := func(state bool) string {
		if !outputs {
			return "n/a"
		}
		return formatSignalState(state)
	}
	fmt.Fprintf(out, "Modem Signals for %s:\n\n", path)
	fmt.Fprintf(out, "  CTS (Clear To Send):       %s\n", formatSignalState(s.CTS))
	fmt.Fprintf(out, "  DSR (Data Set Ready):      %s\n", formatSignalState(s.DSR))
	fmt.Fprintf(out, "  RI  (Ring Indicator):      %s\n", formatSignalState(s.RI))
	fmt.Fprintf(out, "  DCD (Data Carrier Detect): %s\n", formatSignalState(s.DCD))
	fmt.Fprintf(out, "  RTS (Request To Send):     %s\n", output(s.RTS))
	fmt.Fprintf(out, "  DTR (Data Terminal Ready): %s\n", output(s.DTR))
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
