/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	serialstream "github.com/allbin/go-serialstream"
	"github.com/allbin/go-serialstream/driver"
)

var (
	cfgFile string
	v       = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "serialstream",
	Short: "Stream data to and from serial ports",
	Long: `serialstream opens a serial port as a duplex byte stream and lets you
list ports, listen, capture, send and talk to devices interactively.

Line settings are shared by every command and can come from flags, the
environment (SERIALSTREAM_BAUD, SERIALSTREAM_DATA_BITS, ...) or a config
file ($HOME/.serialstream.yaml by default).`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.serialstream.yaml)")
	flags.String("driver", "termios", fmt.Sprintf("serial driver: %s", strings.Join(driver.Names(), ", ")))
	flags.StringP("baud", "b", "115200", "baud rate")
	flags.Int("data-bits", 8, "data bits (5-8)")
	flags.Int("stop-bits", 1, "stop bits (1 or 2)")
	flags.String("parity", "none", "parity: none, odd, even, mark, space")
	flags.Bool("rtscts", false, "enable RTS/CTS hardware flow control")
	flags.Bool("xon", false, "enable XON output flow control")
	flags.Bool("xoff", false, "enable XOFF input flow control")
	flags.Bool("xany", false, "let any character restart output")
	flags.Bool("hupcl", true, "drop modem lines when the port closes")
	flags.Bool("lock", true, "take an exclusive lock on the device")
	flags.Int("high-water-mark", serialstream.DefaultHighWaterMark, "read pool size and unread byte limit")
	flags.Duration("read-retry-delay", 0, "pause before re-issuing a failed read")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")
	flags.String("log-file", "", "also write JSON logs to this rotating file")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".serialstream")
	}

	v.SetEnvPrefix("SERIALSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}
