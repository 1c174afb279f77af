// Package cli implements kruisectl, a command line client for workloads
// behind the multi-cluster console proxy.
package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beastpu/kruise-proxy-mcp/biz/clientset"
	"github.com/beastpu/kruise-proxy-mcp/biz/config"
	"github.com/beastpu/kruise-proxy-mcp/biz/i18n"
	"github.com/beastpu/kruise-proxy-mcp/biz/logging"
	"github.com/beastpu/kruise-proxy-mcp/biz/output"
	"github.com/beastpu/kruise-proxy-mcp/biz/proxy"
)

const userAgent = "kruisectl"

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

type runtimeState struct {
	configPath      string
	serverOverride  string
	tokenOverride   string
	clusterOverride string
	localeOverride  string
	outputFormat    string
	verbose         bool
	writer          io.Writer

	cfg      *config.Config
	format   output.Format
	log      *zap.SugaredLogger
	messages *i18n.Translator
	provider *clientset.Provider
}

type runtimeKey struct{}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{configPath: cfg.ConfigPath, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:           "kruisectl",
		Short:         "Manage OpenKruise workloads through the multi-cluster console proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "kinds" {
				return nil
			}
			return rt.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.configPath, "config", rt.configPath, "Path to config file (default ~/.kruise-proxy/config.yaml)")
	flags.StringVar(&rt.serverOverride, "server", "", "Console base URL, overrides config and kubeconfig")
	flags.StringVar(&rt.tokenOverride, "token", "", "Bearer token for the console")
	flags.StringVarP(&rt.clusterOverride, "cluster", "C", "", "Target cluster name as registered in the console")
	flags.StringVar(&rt.localeOverride, "locale", "", "Message locale, e.g. en or zh-CN")
	flags.StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	flags.BoolVarP(&rt.verbose, "verbose", "v", false, "Log proxy requests to stderr")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))
	if rt.writer != nil {
		root.SetOut(rt.writer)
	}

	root.AddCommand(
		newListCommand(),
		newGetCommand(),
		newScaleCommand(),
		newPatchCommand(),
		newKindsCommand(),
	)
	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// init loads config, then env, then flags, in increasing precedence.
func (rt *runtimeState) init() error {
	if rt.writer == nil {
		rt.writer = os.Stdout
	}
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if rt.serverOverride != "" {
		cfg.Server = rt.serverOverride
	}
	if rt.tokenOverride != "" {
		cfg.Token = rt.tokenOverride
	}
	if rt.clusterOverride != "" {
		cfg.DefaultCluster = rt.clusterOverride
	}
	if rt.localeOverride != "" {
		cfg.Locale = rt.localeOverride
	}
	if rt.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	format, err := output.ParseFormat(rt.outputFormat)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, true)
	if err != nil {
		return err
	}
	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.format = format
	rt.log = log
	rt.messages = catalog.Translator(cfg.Locale)
	rt.provider = clientset.FromConfig(cfg, clientset.WithLogger(log), clientset.WithUserAgent(userAgent))
	return nil
}

func (rt *runtimeState) cluster() (string, error) {
	if rt.cfg.DefaultCluster == "" {
		return "", errors.New("no cluster selected: pass --cluster or set default-cluster in the config")
	}
	return rt.cfg.DefaultCluster, nil
}

func (rt *runtimeState) client() (*proxy.Client, error) {
	return rt.provider.Client()
}
