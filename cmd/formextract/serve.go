package main

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/access-form-extractor/internal/repository"
	"github.com/joseph-ayodele/access-form-extractor/internal/server"
)

var (
	serveAddr    string
	serveNoStore bool
	serveNoLLM   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC extraction server",
	Long: `Start the gRPC server.

The server provides:
  - formextract.v1.ExtractionService/Extract        extract a path or raw text
  - formextract.v1.ExtractionService/GetSubmission  read a stored submission
  - grpc.health.v1.Health                           health checks
  - server reflection, for grpcurl

Examples:
  formextract serve
  formextract serve --addr :9090 --no-store`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		proc, err := newProcessor(cfg, logger, serveNoLLM)
		if err != nil {
			return err
		}

		var repo repository.SubmissionRepository
		if !serveNoStore {
			db, err := openStore(ctx, cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close(logger)
			repo = repositoryFor(db)
		}

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.GRPCAddr
		}
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}

		srv, hs := server.NewGRPCServer(server.NewExtractionService(proc, repo, logger), logger)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Serve(lis) }()
		logger.Info("server.grpc.serving", "addr", lis.Addr().String(), "store", repo != nil)

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("server.shutdown.start")
		hs.Shutdown()
		stopped := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(10 * time.Second):
			srv.Stop()
		}
		logger.Info("server.shutdown.done")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.grpc_addr, :8080)")
	serveCmd.Flags().BoolVar(&serveNoStore, "no-store", false, "run without a submissions store")
	serveCmd.Flags().BoolVar(&serveNoLLM, "no-llm", false, "run the deterministic pass only")

	rootCmd.AddCommand(serveCmd)
}
