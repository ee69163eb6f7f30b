// Command hemlock runs a Hemlock module against a JSON-encoded AST
// fixture (the CLI's stand-in for a real parser, which stays an
// out-of-scope external collaborator). It wires the thread pool, task
// manager, evaluator, and optional observability/rate-limit/audit layers
// per a loaded config.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/hemlang/hemlock/internal/ast"
	"github.com/hemlang/hemlock/internal/config"
	"github.com/hemlang/hemlock/internal/environment"
	"github.com/hemlang/hemlock/internal/eval"
	"github.com/hemlang/hemlock/internal/execctx"
	"github.com/hemlang/hemlock/internal/herr"
	"github.com/hemlang/hemlock/internal/logging"
	"github.com/hemlang/hemlock/internal/metrics"
	"github.com/hemlang/hemlock/internal/observability"
	"github.com/hemlang/hemlock/internal/ratelimit"
	"github.com/hemlang/hemlock/internal/task"
	"github.com/hemlang/hemlock/internal/taskaudit"
	"github.com/hemlang/hemlock/internal/value"
	"github.com/hemlang/hemlock/internal/workerpool"
)

var (
	argvFlag       []string
	modulePathFlag []string
	workersFlag    int
	traceFlag      bool
	configFlag     string
)

func main() {
	root := &cobra.Command{
		Use:           "hemlock <fixture.json>",
		Short:         "Run a Hemlock AST fixture",
		Args:          cobra.ExactArgs(1),
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().StringArrayVar(&argvFlag, "argv", nil, "arguments exposed to the running module")
	root.Flags().StringArrayVar(&modulePathFlag, "module-path", nil, "module search path (repeatable)")
	root.Flags().IntVar(&workersFlag, "workers", 0, "override the worker pool's max worker count")
	root.Flags().BoolVar(&traceFlag, "trace", false, "log every evaluator call")
	root.Flags().StringVar(&configFlag, "config", "", "path to a YAML config file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFlag != "" {
		loaded, err := config.LoadFromFile(configFlag)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	if workersFlag > 0 {
		cfg.WorkerPool.MaxWorkers = workersFlag
	}
	if traceFlag {
		cfg.Observability.Logging.TraceCalls = true
	}

	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)
	logging.DefaultTracer().SetEnabled(cfg.Observability.Logging.TraceCalls)

	if cfg.Observability.Metrics.Enabled {
		metrics.Init(cfg.Observability.Metrics.Namespace)
	}

	ctx := context.Background()
	if err := observability.Init(ctx, observability.Config{
		Enabled:     cfg.Observability.Tracing.Enabled,
		Exporter:    cfg.Observability.Tracing.Exporter,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		ServiceName: cfg.Observability.Tracing.ServiceName,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
	}); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.Shutdown(ctx)

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	mod, err := ast.ParseFixture(data)
	if err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}

	var audit task.AuditSink
	if cfg.Audit.Enabled {
		store, auditErr := taskaudit.Connect(ctx, cfg.Audit.Postgres.DSN)
		if auditErr != nil {
			return fmt.Errorf("connect task audit: %w", auditErr)
		}
		defer store.Close()
		audit = store
	}

	frames := environment.NewPool(cfg.Environment.FramePoolCapacity)
	evaluator := eval.New(frames)
	evaluator.Globals = map[string]value.Value{
		"argv": argvValue(argvFlag),
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		client := redis.NewClient(&redis.Options{Addr: cfg.RateLimit.RedisAddr})
		backend := ratelimit.NewFallbackBackend(ratelimit.NewRedisBackend(client))
		limiter = ratelimit.New(backend, nil, ratelimit.BudgetConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
		})
	}

	var pool *workerpool.Pool
	runFunc := func(ctx context.Context, fn value.Value, args []value.Value) (value.Value, error) {
		if limiter != nil {
			result, limitErr := limiter.Allow(ctx, pool.ID.String())
			if limitErr != nil {
				return value.Value{}, limitErr
			}
			if !result.Allowed {
				return value.Value{}, herr.New(herr.TaskError, "pool submission budget exceeded")
			}
		}
		return evaluator.Call(fn, args, cfg.Executor.MaxRecursionDepth, calleeDebugName(fn))
	}
	pool = workerpool.New(workerpool.Config{
		MinWorkers:    cfg.WorkerPool.MinWorkers,
		MaxWorkers:    cfg.WorkerPool.MaxWorkers,
		DequeCapacity: cfg.WorkerPool.DequeCapacity,
	}, runFunc)
	defer pool.Shutdown()

	manager := &task.Manager{Pool: pool, Run: runFunc, Audit: audit}
	evaluator.Spawner = manager

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logging.Op().Info("received shutdown signal")
		pool.Shutdown()
		os.Exit(130)
	}()

	execCtx := execctx.New(cfg.Executor.MaxRecursionDepth)
	result, err := evaluator.EvalModule(mod, execCtx)
	if err != nil {
		if m := metrics.Global(); m != nil {
			m.SetPoolQueueDepth(pool.Stats().QueueDepth)
		}
		if herrErr, ok := err.(*herr.Error); ok {
			fmt.Fprintln(os.Stderr, herrErr.Report())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	fmt.Println(value.Stringify(result))
	return nil
}

func argvValue(argv []string) value.Value {
	elems := make([]value.Value, len(argv))
	for i, a := range argv {
		elems[i] = value.NewString(a)
	}
	return value.NewArray(elems)
}

func calleeDebugName(fn value.Value) string {
	if fnObj, ok := fn.Heap.(*value.FunctionObj); ok && fnObj.Name != "" {
		return fnObj.Name
	}
	return "<task>"
}
