package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/cloudlink/internal/core/config"
	"github.com/vietddude/cloudlink/internal/core/domain"
	"github.com/vietddude/cloudlink/internal/infra/storage/postgres"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect [user_id] [provider]",
	Short: "Disconnect a user's cloud storage connection",
	Long:  `Removes the stored OAuth token and resets the connection's health record. This is the explicit action that clears a connection stuck in reconnect-required.`,
	Args:  cobra.ExactArgs(2),
	Run:   runDisconnect,
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}

func runDisconnect(cmd *cobra.Command, args []string) {
	userID, providerName := args[0], args[1]

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	tokens := postgres.NewTokenRepo(db)
	if err := tokens.Clear(ctx, userID, providerName); err != nil {
		slog.Error("Failed to clear token", "error", err)
		os.Exit(1)
	}

	records := postgres.NewHealthRepo(db)
	rec, err := records.Get(ctx, userID, providerName)
	if err != nil {
		slog.Error("Failed to load health record", "error", err)
		os.Exit(1)
	}
	if rec != nil {
		rec.Status = domain.StatusDisconnected
		rec.ConsolidatedStatus = domain.ConsolidatedNotConnected
		rec.RequiresReconnect = false
		rec.ConsecutiveFailures = 0
		rec.LastErrorType = ""
		rec.LastErrorMessage = ""
		if err := records.Upsert(ctx, rec); err != nil {
			slog.Error("Failed to reset health record", "error", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Successfully disconnected %s from %s\n", userID, providerName)
}
