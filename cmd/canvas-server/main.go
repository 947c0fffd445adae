package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	canvas "github.com/cnvs/canvas-server"
	"github.com/cnvs/canvas-server/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port         int
		certFile     string
		keyFile      string
		numWorkers   int
		bufferCount  int
		bufferSize   string
		txPoolSize   int
		maxConns     int
		idleTimeout  time.Duration
		broadcastEvery time.Duration
		cooldownSlots int
		cooldownTick  time.Duration
		drainBatch    int
		metricsAddr   string
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "canvas-server",
		Short: "Serves a shared pixel canvas over QUIC",
		RunE: func(cmd *cobra.Command, args []string) error {
			var bufSize datasize.ByteSize
			if err := bufSize.UnmarshalText([]byte(bufferSize)); err != nil {
				return fmt.Errorf("invalid --buffer-size %q: %w", bufferSize, err)
			}

			logConfig := logging.DefaultConfig()
			if verbose {
				logConfig.Level = logging.LevelDebug
			}
			logger := logging.NewLogger(logConfig)
			logging.SetDefault(logger)

			listenAddr := fmt.Sprintf(":%d", port)

			params := canvas.DefaultParams()
			params.ListenAddr = listenAddr
			params.CertFile = certFile
			params.KeyFile = keyFile
			params.NumWorkers = numWorkers
			params.BufferCount = bufferCount
			params.BufferSize = int(bufSize.Bytes())
			params.TxPoolSize = txPoolSize
			params.MaxConnsPerWorker = maxConns
			params.IdleTimeout = idleTimeout
			params.BroadcastEvery = broadcastEvery
			params.PublishEvery = broadcastEvery
			params.CooldownSlots = cooldownSlots
			params.CooldownTick = cooldownTick
			params.DrainBatch = drainBatch

			registry := prometheus.NewRegistry()
			params.Observer = canvas.NewPrometheusObserver(registry)

			if certFile == "" || keyFile == "" {
				return fmt.Errorf("--cert and --key are required")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			srv, err := canvas.Serve(ctx, params)
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
				metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
				go func() {
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						logger.Error("metrics server stopped", "error", err)
					}
				}()
				defer metricsSrv.Close()
			}

			logger.Info("canvas server listening",
				"addr", listenAddr, "workers", numWorkers, "buffer_size", bufSize.HumanReadable())

			setupStackDumpHandler(logger)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			logger.Info("received shutdown signal")
			cancel()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during shutdown", "error", err)
				return err
			}
			logger.Info("server stopped cleanly")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&port, "port", canvas.DefaultPort, "UDP port to listen on")
	flags.StringVar(&certFile, "cert", "", "TLS certificate file (required)")
	flags.StringVar(&keyFile, "key", "", "TLS private key file (required)")
	flags.IntVar(&numWorkers, "workers", defaultWorkerCount(), "number of worker threads, each owning its own ring and listener (default: cores - 1)")
	flags.IntVar(&bufferCount, "buffer-count", int(canvas.DefaultBufferCount), "provided receive buffers per worker")
	flags.StringVar(&bufferSize, "buffer-size", "2KB", "size of each receive buffer (e.g. 2KB, 4KB)")
	flags.IntVar(&txPoolSize, "tx-pool-size", int(canvas.DefaultTxPoolSize), "broadcast transmit records per worker")
	flags.IntVar(&maxConns, "max-conns", int(canvas.DefaultMaxConns), "maximum concurrent connections per worker")
	flags.DurationVar(&idleTimeout, "idle-timeout", canvas.DefaultIdleTimeout, "evict connections idle longer than this")
	flags.DurationVar(&broadcastEvery, "broadcast-interval", canvas.DefaultBroadcastInterval, "interval between canvas broadcasts")
	flags.IntVar(&cooldownSlots, "cooldown-slots", int(canvas.DefaultWheelSlots), "rotating cooldown wheel slot count")
	flags.DurationVar(&cooldownTick, "cooldown-tick", canvas.DefaultWheelTick, "duration of one cooldown wheel slot")
	flags.IntVar(&drainBatch, "drain-batch", int(canvas.DefaultMasterBatchDrain), "max diffs the master drains per worker queue per pass")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (empty disables it)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	return cmd
}

// defaultWorkerCount returns cores - 1, reserving one core for the master
// thread, clamped to at least 1 on single-core hosts.
func defaultWorkerCount() int {
	if n := runtime.NumCPU() - 1; n > 0 {
		return n
	}
	return 1
}

// setupStackDumpHandler installs a SIGUSR1 handler that dumps all goroutine
// stacks to stderr and to a timestamped file, for live debugging of a
// running server without restarting it.
func setupStackDumpHandler(logger *logging.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	go func() {
		for range ch {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== GOROUTINE STACK DUMP ===\n%s\n=== END ===\n\n", buf[:n])

			filename := fmt.Sprintf("canvas-server-stacks-%d.txt", time.Now().Unix())
			if f, err := os.Create(filename); err == nil {
				fmt.Fprintf(f, "Goroutine stack dump at %s\npid %d\n\n", time.Now().Format(time.RFC3339), os.Getpid())
				f.Write(buf[:n])
				fmt.Fprintf(f, "\n=== GOROUTINE PROFILE ===\n")
				pprof.Lookup("goroutine").WriteTo(f, 2)
				f.Close()
				logger.Info("stack dump written", "file", filename)
			}
		}
	}()
}
