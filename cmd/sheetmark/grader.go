package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/config"
	"github.com/sheetmark/sheetmark/internal/grader"
	"github.com/sheetmark/sheetmark/internal/home"
)

var graderCmd = &cobra.Command{
	Use:   "grader",
	Short: "Manage the grading service container",
	Long: `Manage the grading service container lifecycle.

The grading service evaluates student workbooks against a rubric and
answer key. It runs in a Docker container; scratch files live under
~/.sheetmark/work/.

Examples:
  sheetmark grader start   # Start the grading service container
  sheetmark grader stop    # Stop the container
  sheetmark grader status  # Check container status
  sheetmark grader logs    # View container logs`,
}

var graderStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the grading service container",
	Long: `Start the grading service container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting grading service...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start grading service: %w", err)
		}

		fmt.Printf("Grading service is running at %s\n", mgr.URL())
		return nil
	},
}

var graderStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the grading service container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping grading service...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop grading service: %w", err)
		}

		fmt.Println("Grading service stopped")
		return nil
	},
}

var graderStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show grading service container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case grader.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			client := grader.NewClient(mgr.URL())
			if err := client.HealthCheck(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case grader.StatusStopped:
			fmt.Printf("Status: %s (use 'sheetmark grader start' to start)\n", status)
		case grader.StatusNotFound:
			fmt.Printf("Status: %s (use 'sheetmark grader start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var graderLogsTail string

var graderLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show grading service container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), graderLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var graderRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the grading service container",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing grading service container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Grading service container removed")
		return nil
	},
}

var graderWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the grading service to be ready",
	Long: `Wait for the grading service to accept requests.

Useful in scripts to ensure the service is fully started before
running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getGraderManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for grading service (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(cmd.Context(), timeout); err != nil {
			return fmt.Errorf("grading service not ready: %w", err)
		}

		fmt.Println("Grading service is ready")
		return nil
	},
}

func init() {
	graderCmd.AddCommand(graderStartCmd)
	graderCmd.AddCommand(graderStopCmd)
	graderCmd.AddCommand(graderStatusCmd)
	graderCmd.AddCommand(graderLogsCmd)
	graderCmd.AddCommand(graderRemoveCmd)
	graderCmd.AddCommand(graderWaitCmd)

	graderLogsCmd.Flags().StringVar(&graderLogsTail, "tail", "100", "Number of lines to show from the end")
	graderWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for the grading service")

	rootCmd.AddCommand(graderCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getGraderManager creates a DockerManager with the configured settings.
func getGraderManager() (*grader.DockerManager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}

	cfgMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg := cfgMgr.Get()

	return grader.NewDockerManager(grader.DockerConfig{
		ContainerName: cfg.Grader.ContainerName,
		Image:         cfg.Grader.Image,
		HostPort:      cfg.Grader.Port,
		WorkPath:      h.WorkPath(),
	})
}
