package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	v1 "github.com/vladislavdragonenkov/comptoirs/api/comptoirs/v1"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	customers   []string
	products    []int64
	quantity    int32
	outputPath  string
}

func (c config) target() string {
	switch {
	case c.duration <= 0:
		return fmt.Sprintf("count:%d", c.total)
	case c.totalSet:
		return fmt.Sprintf("duration:%s,max-total:%d", c.duration, c.total)
	default:
		return fmt.Sprintf("duration:%s", c.duration)
	}
}

func (c config) validate() error {
	switch {
	case strings.TrimSpace(c.addr) == "":
		return errors.New("addr is required")
	case c.duration < 0:
		return errors.New("duration must be >= 0")
	case c.duration == 0 && c.total <= 0:
		return errors.New("total must be > 0 when duration is not set")
	case c.duration > 0 && c.totalSet && c.total <= 0:
		return errors.New("total must be > 0 when set together with duration")
	case c.concurrency <= 0:
		return errors.New("concurrency must be > 0")
	case c.connections <= 0:
		return errors.New("connections must be > 0")
	case c.timeout <= 0:
		return errors.New("timeout must be > 0")
	case len(c.customers) == 0:
		return errors.New("at least one customer is required")
	case c.mode != modeCreate && len(c.products) == 0:
		return errors.New("at least one product is required for line modes")
	case c.quantity <= 0:
		return errors.New("quantity must be > 0")
	}
	return nil
}

type dialer func(addr string, n int) ([]orderClient, func(), error)

func dialOrderService(addr string, n int) ([]orderClient, func(), error) {
	conns := make([]*grpc.ClientConn, 0, n)
	closeAll := func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}

	clients := make([]orderClient, 0, n)
	for i := 0; i < n; i++ {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			closeAll()
			return nil, nil, errors.Wrap(err, "create grpc client connection")
		}
		conns = append(conns, conn)
		clients = append(clients, v1.NewOrderServiceClient(conn))
	}
	return clients, closeAll, nil
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(dialOrderService)
}

func newRootCmdWith(dial dialer) *cobra.Command {
	var (
		cfg          config
		modeValue    string
		customersRaw string
		productsRaw  string
		quantity     int
	)

	cmd := &cobra.Command{
		Use:          "loadtest",
		Short:        "Generate order traffic against the comptoirs gRPC API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if cfg.mode, err = parseMode(strings.TrimSpace(modeValue)); err != nil {
				return err
			}
			cfg.customers = splitList(customersRaw)
			if cfg.products, err = parseProducts(productsRaw); err != nil {
				return err
			}
			if quantity > 0 && quantity <= 1<<31-1 {
				cfg.quantity = int32(quantity)
			}
			cfg.totalSet = cmd.Flags().Changed("total")
			if err := cfg.validate(); err != nil {
				return err
			}

			clients, closeAll, err := dial(cfg.addr, cfg.connections)
			if err != nil {
				return err
			}
			defer closeAll()

			startedAt := time.Now()
			r := &runner{
				cfg:     cfg,
				clients: clients,
				runID:   fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid()),
				col:     newCollector(),
			}
			r.run(cmd.Context())

			result := r.col.buildReport(startedAt, time.Since(startedAt))
			printReport(cmd.OutOrStdout(), result, cfg)
			if cfg.outputPath != "" {
				if err := writeJSONReport(cfg.outputPath, result); err != nil {
					return err
				}
			}
			if result.FailedScenarios > 0 {
				return errors.Errorf("%d of %d scenarios failed", result.FailedScenarios, result.TotalScenarios)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	flags.IntVar(&cfg.total, "total", 400, "scenarios to run; with --duration acts as an upper bound")
	flags.DurationVar(&cfg.duration, "duration", 0, "run for a fixed time instead of a fixed count")
	flags.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	flags.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	flags.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	flags.StringVar(&modeValue, "mode", string(modeCreate), "scenario: create | create-lines | create-lines-ship")
	flags.StringVar(&customersRaw, "customers", "ALFKI,0COM", "customer codes, used round-robin")
	flags.StringVar(&productsRaw, "products", "98,99,97", "product references added to every order")
	flags.IntVar(&quantity, "quantity", 1, "quantity of every added line")
	flags.StringVar(&cfg.outputPath, "output", "", "optional JSON report file")

	return cmd
}

func splitList(raw string) []string {
	var items []string
	for _, chunk := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(chunk); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseProducts(raw string) ([]int64, error) {
	items := splitList(raw)
	refs := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		ref, err := strconv.ParseInt(item, 10, 64)
		if err != nil || ref <= 0 {
			return nil, errors.Errorf("invalid product reference %q", item)
		}
		if _, dup := seen[ref]; dup {
			return nil, errors.Errorf("product %d listed twice", ref)
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs, nil
}
