package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/devsel"
	"github.com/cwbudde/clkit/internal/ocl"
	"github.com/cwbudde/clkit/internal/store"
)

var (
	filterTerms []string
	saveAs      string
	fromProfile string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select devices with a filter chain",
	Long: `Runs a filter chain over the enumerated devices and prints the selected
platform and devices. Filters apply in order:

  type=gpu|cpu|accel|all   keep devices of the given types (also gpu, cpu, accel)
  match=<text>             device name, vendor or platform name contains text
  platform=<n>             keep devices of the n-th platform
  same-platform            keep devices sharing the first device's platform
  majority-platform        keep devices of the platform with most candidates
  index=<n>                keep the n-th remaining device
  menu[=<n>]               pick interactively, or the n-th device without asking

Without -f the chain comes from the profile given with --profile, else from
the select.filters config key.`,
	Args: cobra.NoArgs,
	RunE: runSelect,
}

func init() {
	selectCmd.Flags().StringArrayVarP(&filterTerms, "filter", "f", nil, "Filter term (repeatable)")
	selectCmd.Flags().StringVar(&saveAs, "save", "", "Save the chain and selection as a named profile")
	selectCmd.Flags().StringVar(&fromProfile, "profile", "", "Reuse the chain of a saved profile")
	selectCmd.MarkFlagsMutuallyExclusive("filter", "profile")
	rootCmd.AddCommand(selectCmd)
}

func openStore() (*store.FSStore, error) {
	st, err := store.NewFSStore(currentConfig().Profiles.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return st, nil
}

// resolveFilters picks the chain terms: flags, then profile, then config.
func resolveFilters() ([]string, error) {
	if len(filterTerms) > 0 {
		return filterTerms, nil
	}
	if fromProfile != "" {
		st, err := openStore()
		if err != nil {
			return nil, err
		}
		p, err := st.Load(fromProfile)
		if err != nil {
			return nil, err
		}
		return p.Filters, nil
	}
	return currentConfig().Select.Filters, nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	terms, err := resolveFilters()
	if err != nil {
		return err
	}

	prompter := devsel.DefaultPrompter(os.Stdin, cmd.OutOrStdout())
	chain, err := devsel.ParseChain(terms, prompter)
	if err != nil {
		return err
	}
	slog.Debug("Selecting devices", "chain", chain.String())

	session, done, err := openSession()
	if err != nil {
		return err
	}
	defer done()

	sel, err := devsel.Select(session, chain)
	if err != nil {
		return err
	}
	defer func() {
		if err := sel.Release(); err != nil {
			slog.Warn("Failed to release selection", "error", err)
		}
	}()

	ids, err := printSelection(cmd, sel)
	if err != nil {
		return err
	}

	if saveAs != "" {
		st, err := openStore()
		if err != nil {
			return err
		}
		if err := st.Save(store.NewProfile(saveAs, terms, ids)); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		printf(cmd, "\nSaved profile %q (%s)\n", saveAs, strings.Join(terms, " "))
	}
	return nil
}

// printSelection writes the selection and returns the identities of the
// selected devices.
func printSelection(cmd *cobra.Command, sel *devsel.Selection) ([]store.DeviceIdentity, error) {
	pname, err := sel.Platform.Name()
	if err != nil {
		return nil, err
	}
	printf(cmd, "Platform: %s\n", pname)

	ids := make([]store.DeviceIdentity, len(sel.Devices))
	for i, d := range sel.Devices {
		id, err := identify(d, pname)
		if err != nil {
			return nil, err
		}
		ids[i] = id
		printf(cmd, "  %d. %s (%s, %s)\n", sel.Records[i].Index, id.Name, sel.Records[i].Type, id.Vendor)
	}
	return ids, nil
}

func identify(d *ocl.Device, platform string) (store.DeviceIdentity, error) {
	name, err := d.Name()
	if err != nil {
		return store.DeviceIdentity{}, err
	}
	vendor, err := d.Vendor()
	if err != nil {
		return store.DeviceIdentity{}, err
	}
	return store.DeviceIdentity{Name: name, Vendor: vendor, Platform: platform}, nil
}
