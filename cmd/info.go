package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/devsel"
	"github.com/cwbudde/clkit/internal/errs"
	"github.com/cwbudde/clkit/internal/ocl"
)

var infoCmd = &cobra.Command{
	Use:   "info <device-index> <param>...",
	Short: "Query device parameters",
	Long: `Queries parameters of the device at the given enumeration index. Known
parameters: ` + strings.Join(infoParamNames(), ", ") + `.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

var infoParams = map[string]func(*ocl.Device) (string, error){
	"name":           (*ocl.Device).Name,
	"vendor":         (*ocl.Device).Vendor,
	"version":        (*ocl.Device).Version,
	"driver-version": (*ocl.Device).DriverVersion,
	"extensions":     (*ocl.Device).Extensions,
	"type": func(d *ocl.Device) (string, error) {
		t, err := d.Type()
		return t.String(), err
	},
	"compute-units": func(d *ocl.Device) (string, error) {
		n, err := d.ComputeUnits()
		return strconv.FormatUint(uint64(n), 10), err
	},
	"global-mem": func(d *ocl.Device) (string, error) {
		n, err := d.GlobalMemSize()
		return fmt.Sprintf("%s (%d bytes)", humanize.IBytes(n), n), err
	},
	"max-work-group": func(d *ocl.Device) (string, error) {
		n, err := d.MaxWorkGroupSize()
		return strconv.FormatUint(n, 10), err
	},
}

func infoParamNames() []string {
	names := make([]string, 0, len(infoParams))
	for n := range infoParams {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func runInfo(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return errs.New(errs.Args, "info", "invalid device index %q", args[0])
	}
	queries := make([]func(*ocl.Device) (string, error), len(args)-1)
	for i, name := range args[1:] {
		q, ok := infoParams[name]
		if !ok {
			return errs.New(errs.Args, "info", "unknown parameter %q (known: %s)", name, strings.Join(infoParamNames(), ", "))
		}
		queries[i] = q
	}

	session, done, err := openSession()
	if err != nil {
		return err
	}
	defer done()

	dev, err := devsel.DeviceAt(session, index)
	if err != nil {
		return err
	}
	defer dev.Release()

	for i, name := range args[1:] {
		value, err := queries[i](dev)
		switch {
		case errs.Is(err, errs.InfoUnavailable):
			value = "(unavailable)"
		case err != nil:
			return fmt.Errorf("query %s: %w", name, err)
		}
		printf(cmd, "%-15s %s\n", name+":", value)
	}
	return nil
}
