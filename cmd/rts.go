/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"github.com/spf13/cobra"

	serialstream "github.com/allbin/go-serialstream"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Set RTS (Request To Send) signal state",
	Long: `Set the RTS (Request To Send) signal to high or low.

With --rtscts the tty driver controls RTS itself and may override the
state set here.

State values: high, low, on, off, true, false, 1, 0

Examples:
  serialstream rts /dev/ttyUSB0 high
  serialstream rts /dev/ttyUSB0 off`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setLine(cmd, args, "RTS", (*serialstream.Stream).SetRTS)
	},
}

func init() {
	rootCmd.AddCommand(rtsCmd)
}
