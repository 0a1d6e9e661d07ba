package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/denniszweigle/solana-sbt-project/internal/application/presenter"
	"github.com/denniszweigle/solana-sbt-project/internal/infra/config"
	"github.com/denniszweigle/solana-sbt-project/internal/platform/di"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp(os.Stdout).RunContext(ctx, os.Args)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "sbt"
	app.Version = Version
	app.Usage = "issue, verify and revoke soul-bound governance tokens on Solana"
	app.Writer = out
	app.Flags = []cli.Flag{configFlag, networkFlag, rpcURLFlag, logLevelFlag, outputFlag}
	app.Commands = []*cli.Command{
		&keygenCommand,
		&balanceCommand,
		&fundCommand,
		&checkNetworkCommand,
		&checkMetadataCommand,
		&publishMetadataCommand,
		&mintCommand,
		&verifyCommand,
		&burnCommand,
		&holdingsCommand,
		&serveCommand,
	}
	return app
}

// reportedError marks an error whose report was already printed.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return presenter.ExitOK
	}
	var rep reportedError
	if !errors.As(err, &rep) {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return presenter.ExitCode(err)
}

// ============================================================
// runtime
// ============================================================

type runtime struct {
	cfg    *config.Config
	format presenter.Format
	env    presenter.Env
	out    io.Writer
}

// loadRuntime reads configuration and sets up logging. It never touches the network.
func loadRuntime(c *cli.Context) (*runtime, error) {
	format, err := presenter.ParseFormat(c.String(outputFlagName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}

	v, err := config.NewViper(c.String(configFlagName))
	if err != nil {
		return nil, err
	}
	overrides := map[string]string{
		networkFlagName:  "network.cluster",
		rpcURLFlagName:   "network.rpc_endpoint",
		logLevelFlagName: "log.level",
	}
	for flag, key := range overrides {
		if c.IsSet(flag) {
			v.Set(key, c.String(flag))
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg.Log, format); err != nil {
		return nil, err
	}

	return &runtime{
		cfg:    cfg,
		format: format,
		env:    presenter.Env{Cluster: cfg.Network.Cluster, Explorer: cfg.Network},
		out:    c.App.Writer,
	}, nil
}

// setupLogging sends logs to stderr so reports on stdout stay parseable.
func setupLogging(lc config.LogConfig, format presenter.Format) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(lc.Level))
	if err != nil {
		return fmt.Errorf("%w: log.level: %v", config.ErrConfig, err)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if lc.Format == "json" || format == presenter.FormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func (rt *runtime) container(ctx context.Context, opts di.Options) (*di.Container, error) {
	return di.New(ctx, rt.cfg, opts)
}

// emit prints r and hands err back marked as reported.
func (rt *runtime) emit(r presenter.Report, err error) error {
	if rerr := r.Render(rt.out, rt.format); rerr != nil {
		log.WithError(rerr).Error("[cli] render report")
	}
	if err != nil {
		return reportedError{err: err}
	}
	return nil
}

// fail prints a failure report for errors raised before any result exists.
func (rt *runtime) fail(title string, err error) error {
	return rt.emit(presenter.Failure(title, err, rt.cfg.Network.Cluster), err)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" && !config.IsPlaceholder(s) {
			return s
		}
	}
	return ""
}

// failEarly reports an error raised before the runtime exists (bad config file,
// invalid settings). The report is always text since --output may be the culprit.
func failEarly(c *cli.Context, title string, err error) error {
	cluster := firstNonEmpty(c.String(networkFlagName), config.ClusterDevnet)
	r := presenter.Failure(title, err, cluster)
	if rerr := r.Render(c.App.Writer, presenter.FormatText); rerr != nil {
		return err
	}
	return reportedError{err: err}
}
