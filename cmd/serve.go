package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mealdesk/mealdesk/internal/api"
	"github.com/mealdesk/mealdesk/internal/cache"
	"github.com/mealdesk/mealdesk/internal/config"
	"github.com/mealdesk/mealdesk/internal/dashboard"
	"github.com/mealdesk/mealdesk/internal/database"
	"github.com/mealdesk/mealdesk/internal/mealapi"
	"github.com/mealdesk/mealdesk/internal/scheduler"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MealDesk server",
	Long:  `Start the MealDesk server serving the admin dashboard and the keep-warm job.`,
	Example: `mealdesk serve --config config.yml
mealdesk serve -c /path/to/config.yml --log-level debug
`,
	Run: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load(rootCmdPersistentFlags.ConfigFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	usersCache := cache.NewUsersCache(cfg.Cache)
	client := mealapi.New(cfg.API)

	breakfast, lunch, dinner := cfg.MealPrices()
	svc := dashboard.New(client,
		dashboard.WithUsersCache(usersCache),
		dashboard.WithHistory(db),
		dashboard.WithPrices(dashboard.Prices{Breakfast: breakfast, Lunch: lunch, Dinner: dinner}),
	)

	sched, err := scheduler.New()
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if cfg.KeepWarm != nil && cfg.KeepWarm.Enabled {
		if err := sched.AddSingletonCronJob(
			scheduler.KeepWarmJobID,
			"Keep warm",
			"Pings the meal API and refreshes the users cache",
			cfg.KeepWarm.Schedule,
			scheduler.KeepWarm(client, svc),
			true,
		); err != nil {
			log.Fatalf("failed to schedule keep-warm job: %v", err)
		}
	}

	server, err := api.New(cfg, api.Deps{
		Dashboard:  svc,
		History:    db,
		UsersCache: usersCache,
		Jobs:       sched,
	}, log.GetLevel() == log.DebugLevel)
	if err != nil {
		log.Fatalf("failed to create API server: %v", err)
	}

	sched.Start()

	// Start the API server in a goroutine
	go func() {
		log.Info("starting API server", "listen", cfg.Listen)
		if err := server.Run(); err != nil {
			log.Error("API server error", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	log.Info("mealdesk started successfully")
	select {
	case <-c:
	case <-ctx.Done():
	}
	log.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down API server", "error", err)
	}
	if err := sched.Stop(); err != nil {
		log.Error("failed to stop scheduler", "error", err)
	}
}
