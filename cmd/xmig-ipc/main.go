// Command xmig-ipc is a demonstration and benchmarking tool for the
// shared-memory RPC fabric: `serve` runs a method-dispatch server on an
// address, `call` and `bench` drive it from another process.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/openeuler-mirror/xmig"
	"github.com/openeuler-mirror/xmig/internal/logging"
	"github.com/openeuler-mirror/xmig/message"
	"github.com/openeuler-mirror/xmig/transport"
)

// Demo method identifiers.
const (
	methodAdd      uint64 = 0xCAFE
	methodFill     uint64 = 0xF111
	methodShutdown uint64 = 0xFFFF
)

var (
	flagAddr       string
	flagBufferSize string
	flagFrameLimit string
	flagTimeout    time.Duration
	flagVerbose    bool
)

func main() {
	root := &cobra.Command{
		Use:           "xmig-ipc",
		Short:         "Shared-memory RPC demo and benchmark tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := logging.DefaultConfig()
			if flagVerbose {
				cfg.Level = zapcore.DebugLevel
			}
			logger, err := logging.Init(cfg)
			if err != nil {
				return err
			}
			logging.SetDefault(logger)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagAddr, "addr", "xmig_demo", "shared memory address")
	root.PersistentFlags().StringVar(&flagBufferSize, "buffer-size", "4kb", "per-channel ring size")
	root.PersistentFlags().StringVar(&flagFrameLimit, "frame-limit", "16mb", "maximum frame length")
	root.PersistentFlags().DurationVar(&flagTimeout, "connect-timeout", xmig.DefaultConnectTimeout, "connect polling deadline")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(serveCmd(), callCmd(), benchCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func options() ([]xmig.Option, error) {
	var bufSize, frameLimit datasize.ByteSize
	if err := bufSize.UnmarshalText([]byte(flagBufferSize)); err != nil {
		return nil, fmt.Errorf("invalid --buffer-size: %w", err)
	}
	if err := frameLimit.UnmarshalText([]byte(flagFrameLimit)); err != nil {
		return nil, fmt.Errorf("invalid --frame-limit: %w", err)
	}
	return []xmig.Option{
		xmig.WithBufferSize(int(bufSize.Bytes())),
		xmig.WithFrameLimit(int(frameLimit.Bytes())),
		xmig.WithConnectTimeout(flagTimeout),
	}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Create the endpoint and dispatch requests until shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			server, err := xmig.NewServer(flagAddr, opts...)
			if err != nil {
				return err
			}
			defer server.Close()

			// Close on SIGINT/SIGTERM so blocked receives fail out.
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				logging.Infof("signal received, closing endpoint")
				server.Close()
			}()

			logging.Infof("serving on shmem://%s", flagAddr)
			if err := dispatchLoop(server); err != nil {
				// A close triggered by the signal handler is a clean exit.
				if transport.IsCode(err, transport.ErrCodeConnectionClosed) {
					return nil
				}
				return err
			}
			return nil
		},
	}
}

func dispatchLoop(server *xmig.Server) error {
	for {
		req, ok, err := server.ReceiveRequest()
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		var resp *message.Response
		switch req.MethodID() {
		case methodAdd:
			lhs, err := message.Downcast[uint64](req.Arg(0))
			if err != nil {
				return err
			}
			rhs, err := message.Downcast[uint64](req.Arg(1))
			if err != nil {
				return err
			}
			resp = message.NewResponse(req, message.FromValue(lhs+rhs, message.FlagOut))

		case methodFill:
			buf, err := message.DowncastMutSlice[byte](req.Arg(0))
			if err != nil {
				return err
			}
			for i := range buf {
				buf[i] = byte(i + 1)
			}
			resp = message.NewResponse(req, message.FromValue(uint64(len(buf)), message.FlagOut))

		case methodShutdown:
			resp = message.EmptyResponse(req.RequestID(), req.MethodID())
			if err := server.SendMessage(resp); err != nil {
				return err
			}
			logging.Infof("shutdown requested")
			return nil

		default:
			return fmt.Errorf("unknown method %#x", req.MethodID())
		}

		if err := server.SendMessage(resp); err != nil {
			return err
		}
	}
}

func callCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <lhs> <rhs>",
		Short: "Invoke the add method with two integers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lhs, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			rhs, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return err
			}

			opts, err := options()
			if err != nil {
				return err
			}
			client, err := xmig.Connect(flagAddr, opts...)
			if err != nil {
				return err
			}
			defer client.Close()

			req := message.NewRequest(methodAdd, message.In(lhs), message.In(rhs))
			resp, err := client.Invoke(req)
			if err != nil {
				return err
			}
			sum, err := message.Downcast[uint64](resp.ReturnValue())
			if err != nil {
				return err
			}
			fmt.Printf("%d + %d = %d\n", lhs, rhs, sum)
			return nil
		},
	}
}

func benchCmd() *cobra.Command {
	var iterations int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure add round-trip latency and throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := options()
			if err != nil {
				return err
			}
			client, err := xmig.Connect(flagAddr, opts...)
			if err != nil {
				return err
			}
			defer client.Close()

			start := time.Now()
			var acc uint64
			for i := 0; i < iterations; i++ {
				req := message.NewRequest(methodAdd, message.In(acc), message.In(uint64(1)))
				resp, err := client.Invoke(req)
				if err != nil {
					return err
				}
				acc, err = message.Downcast[uint64](resp.ReturnValue())
				if err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			stats := client.Metrics()
			fmt.Printf("iterations: %d (result %d)\n", iterations, acc)
			fmt.Printf("elapsed:    %v (%.1f us/call)\n", elapsed,
				float64(elapsed.Microseconds())/float64(iterations))
			fmt.Printf("wire:       %s sent, %s received\n",
				datasize.ByteSize(stats.BytesSent).HumanReadable(),
				datasize.ByteSize(stats.BytesReceived).HumanReadable())
			return nil
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 100000, "number of round trips")
	return cmd
}
