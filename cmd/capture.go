/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	serialstream "github.com/allbin/go-serialstream"
)

// captureCmd represents the capture command
var captureCmd = &cobra.Command{
	Use:   "capture <port> <output-file>",
	Short: "Capture serial data to a file",
	Long: `Capture incoming serial data to a file for later parsing.

Every chunk read from the port is appended to the output file as is. The
file is rotated once it reaches --max-size megabytes. Runs until
interrupted (Ctrl+C) or the device ends the stream.

Example usage:
  serialstream capture /dev/ttyUSB0 data.log
  serialstream capture /dev/ttyUSB0 output.bin --baud 9600
  serialstream capture /dev/ttyUSB0 capture.log --console
  serialstream capture /dev/ttyUSB0 capture.log --max-size 10 --max-backups 5 --compress`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxSize, _ := cmd.Flags().GetInt("max-size")
		maxBackups, _ := cmd.Flags().GetInt("max-backups")
		compress, _ := cmd.Flags().GetBool("compress")
		showConsole, _ := cmd.Flags().GetBool("console")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx, args[0])
		if err != nil {
			return err
		}
		defer sess.close()

		sink := &lumberjack.Logger{
			Filename:   args[1],
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   compress,
		}
		defer sink.Close()

		var console io.Writer
		if showConsole {
			console = cmd.OutOrStdout()
		}

		fmt.Fprintf(os.Stderr, "Capturing data from %s to %s\n", args[0], args[1])
		fmt.Fprintf(os.Stderr, "Press Ctrl+C to stop\n\n")

		start := time.Now()
		n, err := capture(ctx, sess.stream, sink, console)
		fmt.Fprintf(os.Stderr, "\nCapture complete: %d bytes written in %v\n", n, time.Since(start).Round(time.Millisecond))
		if err != nil {
			sess.logger.Error("capture stopped", zap.Error(err))
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Int("max-size", 100, "Rotate the output file after this many megabytes")
	captureCmd.Flags().Int("max-backups", 0, "Rotated files to keep (0 keeps all)")
	captureCmd.Flags().Bool("compress", false, "Gzip rotated files")
	captureCmd.Flags().BoolP("console", "c", false, "Display incoming data on console while capturing")
}

// capture copies chunks from r to w until ctx ends or the stream does. It
// returns the number of bytes written.
func capture(ctx context.Context, r serialstream.ChunkReader, w io.Writer, console io.Writer) (int64, error) {
	var written int64
	for {
		chunk, err := r.ReadChunk(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return written, nil
			}
			return written, fmt.Errorf("read error: %w", err)
		}

		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("write error: %w", err)
		}
		if console != nil {
			_, _ = console.Write(chunk)
		}
	}
}
