package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/xilidan/vidscribe/services/transcriber/server"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Query the gateway's gRPC health service",
	RunE:  runHealth,
}

var (
	healthAddr    string
	healthTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().StringVar(&healthAddr, "addr", "localhost:9090", "gRPC health address")
	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 5*time.Second, "Request timeout")
}

func runHealth(cmd *cobra.Command, args []string) error {
	conn, err := grpc.NewClient(healthAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", healthAddr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthTimeout)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: server.ServiceName})
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), resp.Status.String())
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("service is %s", resp.Status)
	}
	return nil
}
