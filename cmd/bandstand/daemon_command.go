package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bandstand/internal/api"
	"bandstand/internal/config"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Interact with the running bandstand daemon",
	}
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon runtime status over its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			status, err := fetchDaemonStatus(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			runningKind := statusError
			if status.Running {
				runningKind = statusOK
			}
			fmt.Fprintln(stdout, renderStatusLine("Running", runningKind, fmt.Sprintf("pid %d", status.PID), colorize))
			fmt.Fprintln(stdout, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))

			researchKind := statusWarn
			researchDetail := "idle"
			if status.Research.Active {
				researchKind = statusOK
				researchDetail = fmt.Sprintf("%d queued", status.Research.QueueSize)
			}
			if current := status.Research.Current; current != nil {
				researchDetail = fmt.Sprintf("job %d %q phase %s (%d/%d), %d queued",
					current.ID, current.EntityName, current.Phase, current.PhaseCurrent, current.PhaseTotal, status.Research.QueueSize)
			}
			fmt.Fprintln(stdout, renderStatusLine("Research", researchKind, researchDetail, colorize))
			if status.Research.LastError != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last error", statusWarn, status.Research.LastError, colorize))
			}
			fmt.Fprintln(stdout)

			rows := [][]string{
				{"Songs", strconv.FormatInt(status.Library.Songs, 10)},
				{"Performers", strconv.FormatInt(status.Library.Performers, 10)},
				{"Recordings", strconv.FormatInt(status.Library.Recordings, 10)},
				{"Releases", strconv.FormatInt(status.Library.Releases, 10)},
				{"External refs", strconv.FormatInt(status.Library.Refs, 10)},
			}
			fmt.Fprintln(stdout, renderTable([]string{"Entity", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func fetchDaemonStatus(ctx context.Context, cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("api_bind not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon at %s: %w (is it running? start it with `bandstandd`)", bind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status request failed (%d)", resp.StatusCode)
	}

	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode daemon status: %w", err)
	}
	return &status, nil
}
