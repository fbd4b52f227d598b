package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/plantabyte/hillclimbfit/internal/report"
	"github.com/plantabyte/hillclimbfit/internal/server"
)

var serverURL string

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := strings.TrimRight(serverURL, "/")
	client := &http.Client{Timeout: 10 * time.Second}

	if len(args) == 0 {
		var jobs []*server.Job
		if err := getJSON(client, base+"/api/v1/fits", &jobs); err != nil {
			return err
		}
		return printJobs(cmd.OutOrStdout(), jobs)
	}

	var status server.JobStatus
	if err := getJSON(client, base+"/api/v1/fits/"+args[0], &status); err != nil {
		return err
	}
	return printJobStatus(cmd.OutOrStdout(), &status)
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func printJobs(w io.Writer, jobs []*server.Job) error {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB ID\tSTATE\tMETHODS\tITERATIONS\tBEST COST")
	for _, job := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.6g\n",
			job.ID,
			job.State,
			strings.Join(job.Scenario.Methods, ","),
			job.Iterations,
			job.BestCost,
		)
	}
	return tw.Flush()
}

func printJobStatus(w io.Writer, status *server.JobStatus) error {
	fmt.Fprintf(w, "Job: %s\n", status.ID)
	fmt.Fprintf(w, "State: %s\n", status.State)
	fmt.Fprintf(w, "Elapsed: %s\n", time.Duration(status.Elapsed*float64(time.Second)).Round(time.Millisecond))
	fmt.Fprintln(w)

	sc := status.Scenario
	fmt.Fprintln(w, "Scenario:")
	fmt.Fprintf(w, "  True params: %s\n", report.FormatVector(sc.TrueParams))
	fmt.Fprintf(w, "  Samples: %d on [%g, %g], noise %g, seed %d\n", sc.Points, sc.XMin, sc.XMax, sc.NoiseSigma, sc.Seed)
	fmt.Fprintf(w, "  Methods: %s\n", strings.Join(sc.Methods, ", "))
	fmt.Fprintln(w)

	if len(status.Results) > 0 {
		fmt.Fprintln(w, "Results:")
		for _, res := range status.Results {
			fmt.Fprintf(w, "  %s: %s (cost %.6g, %d iterations)\n", res.Method, report.FormatVector(res.Params), res.Cost, res.Iterations)
			fmt.Fprintf(w, "    error: %s\n", report.FormatVector(res.Errors))
		}
	} else {
		fmt.Fprintln(w, "Progress:")
		fmt.Fprintf(w, "  Hill-climb iterations: %d\n", status.Iterations)
		if status.Iterations > 0 {
			fmt.Fprintf(w, "  Best cost: %.6g\n", status.BestCost)
		}
	}

	if status.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", status.Error)
	}
	return nil
}
