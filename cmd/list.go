/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/go-serialstream/driver"
	"github.com/allbin/go-serialstream/internal/tui/colors"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := driver.ListPortInfo()
		if err != nil {
			return fmt.Errorf("failed to list ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		filtered, err := filterPorts(ports, filterType)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(filtered) == 0 {
			if filterType != "" && filterType != "all" {
				fmt.Fprintf(out, "No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Fprintln(out, "No serial ports found")
			}
			return nil
		}

		if tableFormat {
			renderTable(out, filtered)
		} else {
			renderSimple(out, filtered)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts keeps the ports of one family
func filterPorts(ports []*driver.PortInfo, filterType string) ([]*driver.PortInfo, error) {
	filterType = strings.ToLower(filterType)
	if filterType == "" || filterType == "all" {
		return ports, nil
	}

	var keep func(p *driver.PortInfo) bool
	switch filterType {
	case "usb":
		keep = func(p *driver.PortInfo) bool {
			name := strings.ToLower(p.Name)
			return p.IsUSB || strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm")
		}
	case "standard":
		keep = func(p *driver.PortInfo) bool { return strings.HasPrefix(strings.ToLower(p.Name), "ttys") }
	case "arm":
		keep = func(p *driver.PortInfo) bool { return strings.HasPrefix(strings.ToLower(p.Name), "ttyama") }
	default:
		return nil, fmt.Errorf("unknown filter %q (use usb, standard, arm or all)", filterType)
	}

	var filtered []*driver.PortInfo
	for _, p := range ports {
		if keep(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

const (
	columnKeyPort    = "port"
	columnKeyDesc    = "desc"
	columnKeyUSB     = "usb"
	columnKeyProduct = "product"
)

// portTable builds the static table shown by --table
func portTable(ports []*driver.PortInfo) table.Model {
	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		usb := "-"
		if p.VendorID != "" || p.ProductID != "" {
			usb = p.VendorID + ":" + p.ProductID
		}
		product := p.Product
		if product == "" {
			product = "-"
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPort:    p.Path,
			columnKeyDesc:    p.Description,
			columnKeyUSB:     usb,
			columnKeyProduct: product,
		}))
	}

	return table.New([]table.Column{
		table.NewColumn(columnKeyPort, "Port", 18),
		table.NewColumn(columnKeyDesc, "Type", 22),
		table.NewColumn(columnKeyUSB, "VID:PID", 11),
		table.NewColumn(columnKeyProduct, "Product", 28),
	}).
		WithRows(rows).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Foreground(colors.Text).Align(lipgloss.Left))
}

func renderTable(w io.Writer, ports []*driver.PortInfo) {
	fmt.Fprintf(w, "Found %d serial port(s):\n\n", len(ports))
	fmt.Fprintln(w, portTable(ports).View())
}

func renderSimple(w io.Writer, ports []*driver.PortInfo) {
	for _, p := range ports {
		fmt.Fprintln(w, p.Path)
	}
}

