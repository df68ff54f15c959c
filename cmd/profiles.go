package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/store"
)

var (
	keepLast      int
	olderThanDays int
	forceClean    bool
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage saved selection profiles",
	Long: `Manage named selection profiles. A profile stores a filter chain and the
devices it selected when saved; "clkit select --profile <name>" reapplies it.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE:  runListProfiles,
}

var showProfileCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowProfile,
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete profiles",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDeleteProfiles,
}

var cleanProfilesCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old profiles",
	Long: `Delete profiles based on a retention policy: keep only the N most recently
saved, and/or delete profiles saved more than N days ago.`,
	Args: cobra.NoArgs,
	RunE: runCleanProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)

	profilesCmd.AddCommand(listProfilesCmd)
	profilesCmd.AddCommand(showProfileCmd)
	profilesCmd.AddCommand(deleteProfileCmd)
	profilesCmd.AddCommand(cleanProfilesCmd)

	cleanProfilesCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the last N profiles (0 = keep all)")
	cleanProfilesCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete profiles older than N days (0 = no age limit)")
	cleanProfilesCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListProfiles(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	infos, err := st.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	if len(infos) == 0 {
		printf(cmd, "No profiles found.\n")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSAVED\tDEVICES\tFILTERS")
	fmt.Fprintln(w, "----\t-----\t-------\t-------")
	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			info.Name,
			humanize.Time(info.Timestamp),
			info.Devices,
			info.Filters,
		)
	}
	w.Flush()

	printf(cmd, "\nTotal profiles: %d\n", len(infos))
	return nil
}

func runShowProfile(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	p, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

func runDeleteProfiles(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	for _, name := range args {
		if err := st.Delete(name); err != nil {
			return err
		}
		printf(cmd, "Deleted profile %q\n", name)
	}
	return nil
}

func runCleanProfiles(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	st, err := openStore()
	if err != nil {
		return err
	}

	infos, err := st.List()
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	toDelete := selectProfilesForDeletion(infos, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		printf(cmd, "No profiles match deletion criteria.\n")
		return nil
	}

	printf(cmd, "Found %d profile(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		printf(cmd, "  - %s (saved %s)\n", info.Name, info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		printf(cmd, "\nProceed with deletion? [y/N]: ")
		response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if r := strings.TrimSpace(response); r != "y" && r != "Y" {
			printf(cmd, "Aborted.\n")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, info := range toDelete {
		if err := st.Delete(info.Name); err != nil {
			slog.Error("Failed to delete profile", "name", info.Name, "error", err)
			failed++
		} else {
			slog.Info("Deleted profile", "name", info.Name)
			deleted++
		}
	}

	printf(cmd, "\nDeleted %d profile(s), %d failed.\n", deleted, failed)
	return nil
}

// selectProfilesForDeletion applies the retention policy: profiles older
// than olderThanDays, plus everything but the keepLast most recent ones.
// The result is ordered oldest first.
func selectProfilesForDeletion(infos []store.ProfileInfo, keepLast, olderThanDays int, now time.Time) []store.ProfileInfo {
	sorted := make([]store.ProfileInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	cutoff := now.AddDate(0, 0, -olderThanDays)
	excess := 0
	if keepLast > 0 && len(sorted) > keepLast {
		excess = len(sorted) - keepLast
	}

	var toDelete []store.ProfileInfo
	for i, info := range sorted {
		if i < excess || (olderThanDays > 0 && info.Timestamp.Before(cutoff)) {
			toDelete = append(toDelete, info)
		}
	}
	return toDelete
}

