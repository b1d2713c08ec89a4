/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	serialstream "github.com/allbin/go-serialstream"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Set DTR (Data Terminal Ready) signal state",
	Long: `Set the DTR (Data Terminal Ready) signal to high or low.

DTR is commonly used to reset microcontrollers such as Arduino boards.
The line keeps its state only while the port is open; the driver may drop
it again on close when --hupcl is set.

State values: high, low, on, off, true, false, 1, 0

Examples:
  serialstream dtr /dev/ttyUSB0 high
  serialstream dtr /dev/ttyUSB0 low`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLine(cmd, args, "DTR", (*serialstream.Stream).SetDTR)
	},
}

// setLine opens args[0] and drives one modem output to the state in args[1]
func setLine(cmd *cobra.Command, args []string, name string, set func(*serialstream.Stream, context.Context, bool) error) error {
	portPath := args[0]
	state, err := parseSignalState(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sess, err := openSession(ctx, portPath)
	if err != nil {
		return err
	}
	defer sess.close()

	if err := set(sess.stream, ctx, state); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %s on %s\n", name, formatSignalState(state), portPath)
	return nil
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
