package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/ThinkInAIXYZ/go-mcp/server"
	"github.com/ThinkInAIXYZ/go-mcp/transport"
	"go.uber.org/zap"

	"github.com/beastpu/kruise-proxy-mcp/biz"
	"github.com/beastpu/kruise-proxy-mcp/biz/clientset"
	"github.com/beastpu/kruise-proxy-mcp/biz/config"
	"github.com/beastpu/kruise-proxy-mcp/biz/i18n"
	"github.com/beastpu/kruise-proxy-mcp/biz/logging"
	"github.com/beastpu/kruise-proxy-mcp/biz/metrics"
	// Import sub-packages to execute init functions
	_ "github.com/beastpu/kruise-proxy-mcp/biz/configmap"
	_ "github.com/beastpu/kruise-proxy-mcp/biz/context"
	_ "github.com/beastpu/kruise-proxy-mcp/biz/kruise"
	_ "github.com/beastpu/kruise-proxy-mcp/biz/node"
	_ "github.com/beastpu/kruise-proxy-mcp/biz/pod"
)

const userAgent = "kruise-proxy-mcp"

var (
	mode       string
	address    string
	configPath string
)

func main() {
	flag.StringVar(&mode, "mode", "sse", "Transport mode: 'stdio' or 'sse'")
	flag.StringVar(&address, "address", ":8686", "Address for SSE server")
	flag.StringVar(&configPath, "config", "", "Path to config file (default ~/.kruise-proxy/config.yaml)")
	flag.Parse()

	if err := Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Server startup failed: %v\n", err)
		os.Exit(1)
	}
}

func Start() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode, so logs always go to stderr.
	log, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	env := &biz.Env{
		Provider:       clientset.FromConfig(cfg, clientset.WithLogger(log), clientset.WithUserAgent(userAgent)),
		Log:            log,
		Messages:       catalog.Translator(cfg.Locale),
		DefaultCluster: cfg.DefaultCluster,
		PageSize:       cfg.PageSize,
	}

	var transportServer transport.ServerTransport
	switch mode {
	case "stdio":
		transportServer = transport.NewStdioServerTransport()
		log.Infow("starting in stdio mode")
	case "sse":
		transportServer, err = transport.NewSSEServerTransport(address)
		if err != nil {
			return err
		}
		log.Infow("starting in SSE mode", "address", address)
	default:
		return fmt.Errorf("invalid mode: %s. Must be 'stdio' or 'sse'", mode)
	}

	if cfg.MetricsAddress != "" {
		go serveMetrics(log, cfg.MetricsAddress)
	}

	mcpServer, err := server.NewServer(transportServer)
	if err != nil {
		return err
	}
	if err := biz.RegisterTools(mcpServer, env); err != nil {
		return err
	}
	log.Infow("tools registered",
		"locale", env.Messages.Locale(),
		"defaultCluster", cfg.DefaultCluster,
		"pageSize", cfg.PageSize,
	)

	return mcpServer.Run()
}

func serveMetrics(log *zap.SugaredLogger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Infow("serving metrics", "address", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorw("metrics server stopped", "error", err)
	}
}
