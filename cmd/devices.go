package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/devsel"
)

var devicesJSON bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List OpenCL devices",
	Long: `Lists every device of every platform in enumeration order. The index
column is the one accepted by "index=<n>", "menu=<n>" and "clkit info".`,
	Args: cobra.NoArgs,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	session, done, err := openSession()
	if err != nil {
		return err
	}
	defer done()

	infos, err := devsel.Inventory(session)
	if err != nil {
		return err
	}

	if devicesJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	fmt.Fprintln(cmd.OutOrStdout(), devicesTable(infos))
	return nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// devicesTable renders the inventory. Unknown numeric attributes show as "-".
func devicesTable(infos []devsel.DeviceInfo) string {
	rows := make([][]string, len(infos))
	for i, d := range infos {
		units, mem := "-", "-"
		if d.ComputeUnits > 0 {
			units = strconv.FormatUint(uint64(d.ComputeUnits), 10)
		}
		if d.GlobalMem > 0 {
			mem = humanize.IBytes(d.GlobalMem)
		}
		rows[i] = []string{strconv.Itoa(d.Index), d.Name, d.Type, d.Vendor, fmt.Sprintf("%d. %s", d.PlatformIndex, d.Platform), units, mem}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("#", "DEVICE", "TYPE", "VENDOR", "PLATFORM", "UNITS", "MEMORY").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col >= 5:
				return numberStyle
			}
			return cellStyle
		}).
		String()
}
