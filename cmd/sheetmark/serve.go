package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheetmark/sheetmark/internal/config"
	"github.com/sheetmark/sheetmark/internal/grader"
	"github.com/sheetmark/sheetmark/internal/home"
	"github.com/sheetmark/sheetmark/internal/server"
)

var (
	serveHost      string
	servePort      string
	serveGraderURL string
	serveManaged   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Sheetmark server",
	Long: `Start the Sheetmark HTTP server.

This serves the embedded rubric editor and the session API. With
--managed (or grader.managed in config.yaml) it also runs the grading
service in a local Docker container, stopping it on shutdown.

Examples:
  sheetmark serve                                  # Default port 4477
  sheetmark serve --port 3000                      # Custom port
  sheetmark serve --managed                        # Run the grading service locally
  sheetmark serve --grader-url http://grader:8080  # Use a remote grading service`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()
		cfg := cfgMgr.Get()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if cfg.Library.Dir != "" {
			h.SetLibraryDir(config.ResolveEnvVars(cfg.Library.Dir))
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		// Flags override config
		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		graderURL := cfg.GraderBaseURL()
		if cmd.Flags().Changed("grader-url") {
			graderURL = serveGraderURL
		}
		managed := cfg.Grader.Managed
		if cmd.Flags().Changed("managed") {
			managed = serveManaged
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			GraderBaseURL: graderURL,
			Managed:       managed,
			GraderConfig: grader.DockerConfig{
				ContainerName: cfg.Grader.ContainerName,
				Image:         cfg.Grader.Image,
				HostPort:      cfg.Grader.Port,
				WorkPath:      h.WorkPath(),
			},
			Home:          h,
			ConfigManager: cfgMgr,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "4477", "Port to listen on")
	serveCmd.Flags().StringVar(&serveGraderURL, "grader-url", "", "Grading service URL")
	serveCmd.Flags().BoolVar(&serveManaged, "managed", false, "Run the grading service in a local Docker container")

	rootCmd.AddCommand(serveCmd)
}
