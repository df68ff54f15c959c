package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/clkit/internal/server"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [selection-id]",
	Short: "Query a running server",
	Long: `Queries a running "clkit serve" instance.
If no selection-id is provided, lists held selections and registry state.
If selection-id is provided, shows that selection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listSelections(cmd)
	}
	return showSelection(cmd, args[0])
}

// getJSON fetches url into v. Error bodies are surfaced in the error.
func getJSON(url string, v any) error {
	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var e server.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %s: %s", e.Error, e.Message)
		}
		return fmt.Errorf("server returned error: %s", string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func listSelections(cmd *cobra.Command) error {
	var selections []server.Selection
	if err := getJSON(serverURL+"/api/v1/selections", &selections); err != nil {
		return err
	}
	var reg server.RegistryStatus
	if err := getJSON(serverURL+"/api/v1/registry", &reg); err != nil {
		return err
	}

	printf(cmd, "Registry: %d live wrapper(s)\n", reg.Live)
	for _, kind := range slices.Sorted(maps.Keys(reg.Kinds)) {
		printf(cmd, "  %s: %d\n", kind, reg.Kinds[kind])
	}
	printf(cmd, "\n")

	if len(selections) == 0 {
		printf(cmd, "No selections held\n")
		return nil
	}

	printf(cmd, "Found %d selection(s):\n\n", len(selections))
	for _, s := range selections {
		printSelectionSummary(cmd, s)
	}
	return nil
}

func showSelection(cmd *cobra.Command, id string) error {
	var s server.Selection
	if err := getJSON(serverURL+"/api/v1/selections/"+id, &s); err != nil {
		return err
	}
	printSelectionSummary(cmd, s)
	return nil
}

func printSelectionSummary(cmd *cobra.Command, s server.Selection) {
	printf(cmd, "Selection: %s\n", s.ID)
	printf(cmd, "  Created: %s\n", humanize.Time(s.Created))
	if s.Profile != "" {
		printf(cmd, "  Profile: %s\n", s.Profile)
	}
	printf(cmd, "  Filters: %v\n", s.Filters)
	printf(cmd, "  Platform: %s\n", s.Platform)
	for _, d := range s.Devices {
		printf(cmd, "  %d. %s (%s, %s)\n", d.Index, d.Name, d.Type, humanize.IBytes(d.GlobalMem))
	}
	printf(cmd, "\n")
}
