package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/statekeep/pkg/rpcapi"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative operations against a running statekeepd",
}

var adminRemoveAppCmd = &cobra.Command{
	Use:   "remove-app APP_ID",
	Short: "Permanently delete an app's HEAD, checkpoints and manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminRemoveApp,
}

func init() {
	adminRemoveAppCmd.Flags().String("addr", "localhost:7777", "address of the statekeepd gRPC listener")
	adminRemoveAppCmd.Flags().String("admin-token", "", "admin token (required)")
	adminCmd.AddCommand(adminRemoveAppCmd)
}

func runAdminRemoveApp(cmd *cobra.Command, args []string) error {
	appID := args[0]
	addr, _ := cmd.Flags().GetString("addr")
	token, _ := cmd.Flags().GetString("admin-token")
	if token == "" {
		return fmt.Errorf("--admin-token is required")
	}

	client, err := rpcapi.Dial(addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer client.Close()

	if _, err := client.RemoveApp(context.Background(), appID, token); err != nil {
		return fmt.Errorf("removing app %s: %w", appID, err)
	}

	fmt.Printf("removed app %s\n", appID)
	return nil
}
