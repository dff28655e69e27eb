// Command docmesh runs the documentation pipeline from the command line or
// serves it over HTTP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/docmesh"
	"github.com/hupe1980/docmesh/config"
	"github.com/hupe1980/docmesh/runner"
)

// CLI is the kong command tree.
type CLI struct {
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP server."`
	Generate GenerateCmd `cmd:"" help:"Run the documentation pipeline once and print the result as JSON."`
	Agents   AgentsCmd   `cmd:"" help:"List the configured agents."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config   string `short:"c" help:"Path to YAML config file." type:"path"`
	EnvFile  string `name:"env-file" help:"Path to a .env file." default:".env"`
	LogLevel string `name:"log-level" help:"Log level (debug, info, warn, error)."`

	out io.Writer
}

func (c *CLI) load() (*config.Config, error) {
	cfg, err := config.Load(c.Config, c.EnvFile)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.Log.Level = c.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (v *VersionCmd) Run(cli *CLI) error {
	_, err := fmt.Fprintf(cli.out, "docmesh version %s\n", docmesh.Version)
	return err
}

// AgentsCmd lists the agents built from the configuration.
type AgentsCmd struct{}

func (a *AgentsCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	m, err := docmesh.FromConfig(context.Background(), cfg, nil)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	tw := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCAPABILITIES")
	for _, info := range m.Orchestrator().AgentInfos() {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", info.ID, info.Name, info.Capabilities)
	}
	return tw.Flush()
}

// GenerateCmd runs the pipeline once.
type GenerateCmd struct {
	Topic  string `required:"" help:"Topic to document."`
	Mode   string `help:"Pipeline mode (sequential, parallel, autonomous)." default:"sequential" enum:"sequential,parallel,autonomous"`
	Strict bool   `help:"Fail when the evaluation fails."`
}

func (g *GenerateCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	if g.Strict {
		cfg.Pipeline.ErrorHandling = string(runner.Strict)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := docmesh.FromConfig(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	res, runErr := m.Generate(ctx, g.Topic, runner.Mode(g.Mode))
	if res != nil {
		enc := json.NewEncoder(cli.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return runErr
}

// ServeCmd starts the HTTP server.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)."`
}

func (s *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.load()
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Server.Addr = s.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	m, err := docmesh.FromConfig(ctx, cfg, reg)
	if err != nil {
		return err
	}
	defer m.Close(context.Background())

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      m.Handler(reg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cli.out, "docmesh listening on %s\n", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cli := &CLI{out: os.Stdout}
	kctx := kong.Parse(cli,
		kong.Name("docmesh"),
		kong.Description("Multi-agent documentation generation."),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run(cli))
}
