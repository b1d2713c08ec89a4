/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/internal/tui/colors"
	"github.com/allbin/go-serialstream/internal/tui/components"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(colors.Mauve).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colors.Green).Bold(true)
	rxStyle      = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true)
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port.

Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialstream send /dev/ttyUSB0
- Interactive mode: serialstream send /dev/ttyUSB0 (prompts for input)
- Byte values: serialstream send --values 1,2,3,4,5 /dev/ttyUSB0

With --repeat the data is written again at every interval until --count
writes were made or the command is interrupted. --listen prints what the
device sends back.

Example usage:
  serialstream send "AT+GMR" /dev/ttyUSB0 --newline
  serialstream send 48656c6c6f /dev/ttyUSB0 --hex
  serialstream send --values 1,2,3,4,5 --repeat 1s --listen /dev/ttyUSB0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		values, _ := cmd.Flags().GetString("values")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		repeat, _ := cmd.Flags().GetDuration("repeat")
		count, _ := cmd.Flags().GetInt("count")
		listen, _ := cmd.Flags().GetBool("listen")

		portPath := args[len(args)-1]
		var payload []byte
		var err error
		switch {
		case values != "":
			if len(args) != 1 {
				return errors.New("--values replaces the data argument")
			}
			payload, err = parseValues(values)
		default:
			var data string
			if len(args) == 2 {
				data = args[0]
			} else if data, err = readInput(cmd.InOrStdin()); err != nil {
				return err
			}
			payload, err = encodePayload(data, hexMode, addNewline)
		}
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Opening %s...\n", infoStyle.Render("⚡"), portPath)
		sess, err := openSession(ctx, portPath)
		if err != nil {
			return err
		}
		defer sess.close()
		fmt.Fprintf(out, "%s Connected successfully\n", successStyle.Render("✓"))

		if listen {
			go printReceived(ctx, sess.stream, out)
		}

		writes, err := sendRepeated(ctx, sess.stream, payload, timeout, repeat, count, func(n int) {
			fmt.Fprintf(out, "%s Sent %d bytes: %s\n", successStyle.Render("✓"), len(payload), components.HexString(payload))
		})
		if err != nil {
			return err
		}

		if listen && ctx.Err() == nil {
			fmt.Fprintf(out, "%s Listening, press Ctrl+C to stop\n", infoStyle.Render("⚡"))
			<-ctx.Done()
		}
		stats := sess.stream.Stats()
		fmt.Fprintf(out, "%s %d write(s), %d bytes sent, %d bytes received\n",
			infoStyle.Render("📋"), writes, stats.BytesWritten, stats.BytesRead)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().String("values", "", "Comma separated byte values to send, e.g. 1,2,3,4,5")
	sendCmd.Flags().DurationP("timeout", "T", 5*time.Second, "Timeout for each write")
	sendCmd.Flags().Duration("repeat", 0, "Send again at this interval")
	sendCmd.Flags().Int("count", 0, "Stop after this many writes when repeating (0 means no limit)")
	sendCmd.Flags().BoolP("listen", "l", false, "Print data received from the device")
}

func readInput(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok {
		stat, err := f.Stat()
		if err == nil && stat.Mode()&os.ModeCharDevice != 0 {
			return promptForData(f), nil
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func promptForData(in io.Reader) string {
	fmt.Print(infoStyle.Render("Enter data to send: "))
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

// encodePayload converts command line data to bytes. A newline is only
// appended to text.
func encodePayload(data string, hexMode, addNewline bool) ([]byte, error) {
	if hexMode {
		data = strings.NewReplacer("0x", "", "0X", "").Replace(data)
		b, err := components.ParseHex(data)
		if err != nil {
			return nil, fmt.Errorf("invalid hex data: %w", err)
		}
		return b, nil
	}
	if addNewline {
		data += "\n"
	}
	if data == "" {
		return nil, components.ErrEmptyInput
	}
	return []byte(data), nil
}

// parseValues parses "1,2,3" into bytes. Each value must fit in a byte.
func parseValues(s string) ([]byte, error) {
	fields := strings.Split(s, ",")
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte value %q: %w", f, err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// sendRepeated writes payload once, or every interval when repeat is set,
// and returns the number of completed writes.
func sendRepeated(ctx context.Context, w serialstream.ChunkWriter, payload []byte, timeout, repeat time.Duration, count int, sent func(int)) (int, error) {
	send := func(n int) error {
		wctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := w.WriteContext(wctx, payload); err != nil {
			return fmt.Errorf("failed to send data: %w", err)
		}
		if sent != nil {
			sent(n)
		}
		return nil
	}

	if err := send(1); err != nil {
		return 0, err
	}
	if repeat <= 0 {
		return 1, nil
	}

	ticker := time.NewTicker(repeat)
	defer ticker.Stop()
	writes := 1
	for count <= 0 || writes < count {
		select {
		case <-ctx.Done():
			return writes, nil
		case <-ticker.C:
			if err := send(writes + 1); err != nil {
				return writes, err
			}
			writes++
		}
	}
	return writes, nil
}

func printReceived(ctx context.Context, r serialstream.ChunkReader, out io.Writer) {
	for {
		chunk, err := r.ReadChunk(ctx)
		if err != nil {
			return
		}
		fmt.Fprintf(out, "%s %s  %s\n", rxStyle.Render("↙ RX"),
			components.HexString(chunk), components.ASCIIString(chunk))
	}
}
