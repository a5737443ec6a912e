package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/econfetch/econfetch/internal/config"
	"github.com/econfetch/econfetch/internal/fetch"
	"github.com/econfetch/econfetch/internal/logging"
	"github.com/econfetch/econfetch/internal/scheduler"
	"github.com/econfetch/econfetch/internal/server"
	"github.com/econfetch/econfetch/internal/server/routes"
	"github.com/econfetch/econfetch/internal/sourcemodule/fred"
	"github.com/econfetch/econfetch/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
	fetchSource string
	fetchAll    bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		fmt.Fprintln(stdOut, version.Full())
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["sources"] = len(cfg.Sources)
		fields["scheduled"] = config.ScheduledCount(cfg.Sources)
		fields["fred_api_key"] = cfg.Global.HasFREDKey()
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	registry, err := server.NewSourceRegistry(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "构建数据源注册表失败: %v\n", err)
		return 1
	}

	// 启动顺序为“配置 → SourceRegistry → Fetcher → 调度器/HTTP”，
	// 所有入口共享同一个 Fetcher 与缓存根目录。
	fetcher, err := fetch.New(fetch.Options{
		Client:           fetch.NewHTTPClient(cfg.Global.UpstreamTimeout.DurationValue()),
		CacheRoot:        cfg.Global.CacheRoot,
		AppName:          cfg.Global.AppName,
		Logger:           logger,
		RepairCollisions: cfg.Global.RepairCollisions,
		UserAgent:        cfg.Global.UserAgent,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	if opts.fetchSource != "" || opts.fetchAll {
		return runOneShot(context.Background(), opts, registry, fetcher)
	}

	sched := scheduler.New(fetcher, logger, cfg.Global.UpstreamTimeout.DurationValue())
	if _, err := sched.AddSources(cfg); err != nil {
		fmt.Fprintf(stdErr, "注册定时任务失败: %v\n", err)
		return 1
	}

	fields := logging.BaseFields("startup", opts.configPath)
	fields["sources"] = len(cfg.Sources)
	fields["scheduled"] = sched.Len()
	fields["listen_port"] = cfg.Global.ListenPort
	fields["cache_root"] = fetcher.CacheRoot()
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	fredClient := fred.NewClient(fetcher, cfg.Global.FREDAPIKey)
	if err := startHTTPServer(cfg, registry, fetcher, fredClient, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// runOneShot 执行 -fetch / -fetch-all：逐个下载并打印本地路径，任一失败返回 1。
func runOneShot(ctx context.Context, opts cliOptions, registry *server.SourceRegistry, fetcher *fetch.Fetcher) int {
	var targets []server.SourceRoute
	if opts.fetchAll {
		targets = registry.List()
	} else {
		route, ok := registry.Lookup(opts.fetchSource)
		if !ok {
			fmt.Fprintf(stdErr, "未找到数据源: %s\n", opts.fetchSource)
			return 1
		}
		targets = []server.SourceRoute{*route}
	}

	code := 0
	for _, route := range targets {
		path, err := fetcher.Fetch(ctx, route.Request)
		if err != nil {
			fmt.Fprintf(stdErr, "%s: %v\n", route.Config.Name, err)
			code = 1
			continue
		}
		if opts.fetchAll {
			fmt.Fprintf(stdOut, "%s\t%s\n", route.Config.Name, path)
		} else {
			fmt.Fprintln(stdOut, path)
		}
	}
	return code
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("econfetch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag  string
		checkOnly   bool
		showVer     bool
		fetchSource string
		fetchAll    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 ECONFETCH_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")
	fs.StringVar(&fetchSource, "fetch", "", "下载指定数据源后打印本地路径并退出")
	fs.BoolVar(&fetchAll, "fetch-all", false, "下载全部数据源后退出")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}
	if fetchSource != "" && fetchAll {
		return cliOptions{}, fmt.Errorf("-fetch 与 -fetch-all 不能同时使用")
	}

	path := os.Getenv("ECONFETCH_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
		fetchSource: fetchSource,
		fetchAll:    fetchAll,
	}, nil
}

func startHTTPServer(cfg *config.Config, registry *server.SourceRegistry, fetcher *fetch.Fetcher, fredClient *fred.Client, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		Registry:   registry,
		Fetcher:    fetcher,
		ListenPort: port,
	})
	if err != nil {
		return err
	}
	routes.RegisterModuleRoutes(app, registry)
	routes.RegisterSourceRoutes(app, registry, fetcher)
	routes.RegisterRecessionRoutes(app, fredClient)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	// Listen 返回后关闭 done，信号协程随之退出。
	done := make(chan struct{})
	defer close(done)
	go shutdownOnSignal(signals, done, app.Shutdown, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

// shutdownOnSignal 等待退出信号后调用 shutdown；done 先关闭时直接返回。
func shutdownOnSignal(signals <-chan os.Signal, done <-chan struct{}, shutdown func() error, logger *logrus.Logger) {
	select {
	case sig := <-signals:
		logger.WithFields(logrus.Fields{"action": "shutdown", "signal": sig.String()}).Info("收到退出信号")
		_ = shutdown()
	case <-done:
	}
}
