package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aegisd/aegis/internal/config"
	"github.com/aegisd/aegis/internal/database"
	"github.com/aegisd/aegis/internal/logger"
	"github.com/aegisd/aegis/internal/model"
	"github.com/aegisd/aegis/internal/repository"
	"github.com/aegisd/aegis/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "aegisctl",
	Short: "Operator tool for the Aegis security service",
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the baseline role permission sets",
	RunE:  runSeed,
}

var unlockCmd = &cobra.Command{
	Use:   "unlock [identity-id]",
	Short: "Clear an identity's lockout and failure counter",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnlock,
}

var eventsCmd = &cobra.Command{
	Use:   "events [limit]",
	Short: "Print recent security events, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runEvents,
}

var badIPCmd = &cobra.Command{
	Use:   "badip",
	Short: "Manage the known-bad IP set",
}

var badIPAddCmd = &cobra.Command{
	Use:   "add [ip]",
	Short: "Mark an origin IP as known-bad",
	Args:  cobra.ExactArgs(1),
	RunE:  runBadIPAdd,
}

var badIPRemoveCmd = &cobra.Command{
	Use:   "remove [ip]",
	Short: "Clear a known-bad origin IP",
	Args:  cobra.ExactArgs(1),
	RunE:  runBadIPRemove,
}

var permissionsCmd = &cobra.Command{
	Use:   "permissions [role]",
	Short: "Print a role's current permission set",
	Args:  cobra.ExactArgs(1),
	RunE:  runPermissions,
}

func init() {
	badIPCmd.AddCommand(badIPAddCmd)
	badIPCmd.AddCommand(badIPRemoveCmd)

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(badIPCmd)
	rootCmd.AddCommand(permissionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func connect() (*database.Redis, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return rdb, cfg, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	log := logger.New("info", "text")

	rdb, _, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	authzSvc := service.NewAuthzService(repository.NewPermissionRepository(rdb), log)
	if err := authzSvc.Seed(context.Background(), config.PermissionSeed()); err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	log.Info().Msg("role permissions seeded")
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	rdb, _, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	identityRepo := repository.NewIdentityRepository(rdb)
	if err := identityRepo.ResetFailureState(context.Background(), args[0]); err != nil {
		return fmt.Errorf("unlock failed: %w", err)
	}

	fmt.Printf("Identity %s unlocked\n", args[0])
	return nil
}

func runEvents(cmd *cobra.Command, args []string) error {
	limit := int64(50)
	if len(args) == 1 {
		parsed, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || parsed < 1 {
			return fmt.Errorf("limit must be a positive integer")
		}
		limit = parsed
	}

	rdb, cfg, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	eventRepo := repository.NewEventRepository(rdb, cfg.Security.Events.MaxEvents)
	events, err := eventRepo.List(context.Background(), limit)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	for _, event := range events {
		fmt.Printf("%s  %-8s  %-26s  %s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Severity,
			event.EventType,
			event.Description,
		)
	}

	fmt.Printf("%d events\n", len(events))
	return nil
}

func runBadIPAdd(cmd *cobra.Command, args []string) error {
	rdb, _, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	windowRepo := repository.NewWindowRepository(rdb)
	if err := windowRepo.AddBadIP(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to add bad IP: %w", err)
	}

	fmt.Printf("Marked %s as known-bad\n", args[0])
	return nil
}

func runBadIPRemove(cmd *cobra.Command, args []string) error {
	rdb, _, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	windowRepo := repository.NewWindowRepository(rdb)
	if err := windowRepo.RemoveBadIP(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to remove bad IP: %w", err)
	}

	fmt.Printf("Cleared %s\n", args[0])
	return nil
}

func runPermissions(cmd *cobra.Command, args []string) error {
	role, ok := model.ParseRole(args[0])
	if !ok {
		return fmt.Errorf("unknown role %q", args[0])
	}

	rdb, _, err := connect()
	if err != nil {
		return err
	}
	defer rdb.Close()

	permRepo := repository.NewPermissionRepository(rdb)
	permissions, err := permRepo.List(context.Background(), role)
	if err != nil {
		return fmt.Errorf("failed to list permissions: %w", err)
	}

	for _, p := range permissions {
		fmt.Println(p)
	}

	return nil
}
