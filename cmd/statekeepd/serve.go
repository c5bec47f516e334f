package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/cuemby/statekeep/pkg/app"
	"github.com/cuemby/statekeep/pkg/httpapi"
	"github.com/cuemby/statekeep/pkg/kv"
	"github.com/cuemby/statekeep/pkg/kv/memfs"
	"github.com/cuemby/statekeep/pkg/kv/pebblekv"
	"github.com/cuemby/statekeep/pkg/log"
	"github.com/cuemby/statekeep/pkg/metrics"
	"github.com/cuemby/statekeep/pkg/registry"
	"github.com/cuemby/statekeep/pkg/rpcapi"
	"github.com/cuemby/statekeep/pkg/uploader/s3"
)

const snapshotRemotePrefix = "statekeepd"

// maybeEnableSnapshotUpload arms post-checkpoint snapshot uploads when
// S3 credentials are present in the environment. Absent S3_ENDPOINT or
// AWS_ACCESS_KEY_ID, uploads stay disabled and CreateCheckpoint behaves
// exactly as it does without this feature.
func maybeEnableSnapshotUpload(rpcServer *rpcapi.Server) error {
	endpoint := os.Getenv("S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if endpoint == "" && accessKey == "" {
		return nil
	}

	up, err := s3.New(s3.Config{
		Endpoint:        endpoint,
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
	})
	if err != nil {
		return fmt.Errorf("building snapshot uploader: %w", err)
	}
	rpcServer.EnableSnapshotUpload(up, snapshotRemotePrefix)
	log.Logger.Info().Str("endpoint", endpoint).Msg("snapshot upload enabled")
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the state manager's gRPC and HTTP listeners",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "gRPC listen port (required unless set via --config)")
	serveCmd.Flags().String("db-path", "/run/state-manager", "root directory holding per-app state")
	serveCmd.Flags().String("kv-backend", "memfs", "per-app storage backend: memfs or pebble")
	serveCmd.Flags().String("admin-socket", "", "optional unix socket path for a read-only listener")
	serveCmd.Flags().String("http-addr", ":9090", "address for the /health, /ready and /metrics listener")
	serveCmd.Flags().String("config", "", "optional YAML config file; explicit flags override its values")
}

func runServe(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	dbPath, _ := cmd.Flags().GetString("db-path")
	kvBackend, _ := cmd.Flags().GetString("kv-backend")
	adminSocket, _ := cmd.Flags().GetString("admin-socket")
	httpAddr, _ := cmd.Flags().GetString("http-addr")
	configPath, _ := cmd.Flags().GetString("config")

	if configPath != "" {
		fc, err := loadFileConfig(configPath)
		if err != nil {
			return fmt.Errorf("loading config %s: %w", configPath, err)
		}
		if !cmd.Flags().Changed("port") && fc.Port != 0 {
			port = fc.Port
		}
		if !cmd.Flags().Changed("db-path") && fc.DBPath != "" {
			dbPath = fc.DBPath
		}
		if !cmd.Flags().Changed("kv-backend") && fc.KVBackend != "" {
			kvBackend = fc.KVBackend
		}
		if !cmd.Flags().Changed("admin-socket") && fc.AdminSocket != "" {
			adminSocket = fc.AdminSocket
		}
		if !cmd.Flags().Changed("http-addr") && fc.HTTPAddr != "" {
			httpAddr = fc.HTTPAddr
		}
		logLevel, _ := cmd.Flags().GetString("log-level")
		logJSON, _ := cmd.Flags().GetBool("log-json")
		relog := false
		if !cmd.Flags().Changed("log-level") && fc.LogLevel != "" {
			logLevel, relog = fc.LogLevel, true
		}
		if !cmd.Flags().Changed("log-json") && fc.LogJSON {
			logJSON, relog = true, true
		}
		if relog {
			log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})
		}
	}

	if port == 0 {
		return fmt.Errorf("--port is required")
	}

	var backends app.Backends
	switch kvBackend {
	case "memfs", "":
		backends = app.Backends{
			Open:    func(path string) (kv.Backend, error) { return memfs.Open(path) },
			Destroy: memfs.Destroy,
		}
		kvBackend = "memfs"
	case "pebble":
		backends = app.Backends{
			Open:    func(path string) (kv.Backend, error) { return pebblekv.OpenWithLogger(path, log.Logger) },
			Destroy: pebblekv.Destroy,
		}
	default:
		return fmt.Errorf("unknown --kv-backend %q: want memfs or pebble", kvBackend)
	}

	reg, err := registry.New(dbPath, backends, log.Logger)
	if err != nil {
		return fmt.Errorf("opening registry at %s: %w", dbPath, err)
	}
	defer reg.Close()
	metrics.RegisterComponent("registry", true, "registry open")

	rpcServer, err := rpcapi.New(reg, log.Logger)
	if err != nil {
		return fmt.Errorf("building rpc server: %w", err)
	}
	if err := maybeEnableSnapshotUpload(rpcServer); err != nil {
		return err
	}

	interceptor := rpcapi.Chain(
		rpcapi.CorrelationInterceptor(),
		rpcapi.AccessLogInterceptor(log.Logger),
		rpcapi.MetricsInterceptor(),
		rpcapi.ErrorMappingInterceptor(),
	)
	grpcServer := rpcapi.NewGRPCServer(rpcServer, interceptor)

	addr := fmt.Sprintf(":%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	var adminListener net.Listener
	var adminServer *grpc.Server
	if adminSocket != "" {
		_ = os.Remove(adminSocket)
		adminListener, err = net.Listen("unix", adminSocket)
		if err != nil {
			return fmt.Errorf("listening on admin socket %s: %w", adminSocket, err)
		}
		adminInterceptor := rpcapi.Chain(
			rpcapi.CorrelationInterceptor(),
			rpcapi.AccessLogInterceptor(log.Logger),
			rpcapi.ReadOnlyInterceptor(),
			rpcapi.ErrorMappingInterceptor(),
		)
		adminServer = rpcapi.NewGRPCServer(rpcServer, adminInterceptor)
	}

	collector := metrics.NewCollector(reg)
	collector.Start()
	defer collector.Stop()

	httpServer := httpapi.New(reg, kvBackend)
	httpCtx, cancelHTTP := context.WithCancel(context.Background())
	defer cancelHTTP()

	errCh := make(chan error, 3)
	go func() {
		log.Logger.Info().Str("addr", addr).Msg("gRPC listener starting")
		errCh <- grpcServer.Serve(lis)
	}()
	if adminServer != nil {
		go func() {
			log.Logger.Info().Str("socket", adminSocket).Msg("read-only admin listener starting")
			errCh <- adminServer.Serve(adminListener)
		}()
	}
	go func() {
		errCh <- httpServer.ListenAndServe(httpCtx, httpAddr)
	}()

	metrics.RegisterComponent("rpcapi", true, "gRPC listener accepting connections")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Logger.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil {
			log.Logger.Error().Err(err).Msg("listener failed")
		}
	}

	metrics.RegisterComponent("rpcapi", false, "shutting down")
	grpcServer.GracefulStop()
	if adminServer != nil {
		adminServer.GracefulStop()
	}
	cancelHTTP()

	return nil
}
