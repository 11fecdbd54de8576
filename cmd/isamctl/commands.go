package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	isamcli "github.com/therealmichaelberna/nokia.isam/pkg/cli"
	"github.com/therealmichaelberna/nokia.isam/pkg/cmdtree"
	"github.com/therealmichaelberna/nokia.isam/pkg/config"
	"github.com/therealmichaelberna/nokia.isam/pkg/configstore"
	"github.com/therealmichaelberna/nokia.isam/pkg/daemon"
	"github.com/therealmichaelberna/nokia.isam/pkg/facts"
	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
	"github.com/therealmichaelberna/nokia.isam/pkg/grpcapi"
	"github.com/therealmichaelberna/nokia.isam/pkg/logging"
)

const defaultConfigFile = "/etc/isam/isam.yaml"

type logOutputKey struct{}

// Flags keep their parsed value, so each command gets its own instance.
func newPolicyFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "policy",
		Usage: "line flattener context policy (reset, persist); default from config",
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "isamctl",
		Usage:                 "Normalize Nokia ISAM configuration dumps",
		Version:               version,
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   defaultConfigFile,
				Usage:   "configuration file path (missing file uses defaults)",
				Sources: cli.EnvVars("ISAM_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("ISAM_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   string(formatText),
				Usage:   "output format (text, json, yaml)",
			},
		},
		Before:          setupLogging,
		CommandNotFound: commandNotFound,
		Commands: []*cli.Command{
			linesCmd(),
			treeCmd(),
			factsCmd(),
			serveCmd(),
			shellCmd(),
			remoteCmd(),
		},
	}
}

// setupLogging installs the process logger for one-shot commands. serve
// builds its own from the configuration file.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	out, err := logging.Setup(logging.Options{
		Level:  logLevel(cmd),
		Writer: errWriter(cmd),
	})
	if err != nil {
		return ctx, err
	}
	slog.SetDefault(out.Logger)
	return context.WithValue(ctx, logOutputKey{}, out), nil
}

func logLevel(cmd *cli.Command) string {
	if cmd.Bool("debug") {
		return "debug"
	}
	return cmd.String("log-level")
}

func commandNotFound(_ context.Context, cmd *cli.Command, name string) {
	w := errWriter(cmd)
	fmt.Fprintf(w, "unknown command %q", name)
	if s := suggestCommand(name, cmd.Commands); s != "" {
		fmt.Fprintf(w, ", did you mean %q?", s)
	}
	fmt.Fprintln(w)
}

// suggestCommand returns the visible command closest to name.
func suggestCommand(name string, cmds []*cli.Command) string {
	var names []string
	for _, c := range cmds {
		if !c.Hidden {
			names = append(names, c.Name)
		}
	}
	return cmdtree.Nearest(name, names)
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// readInput reads the file named by the argument at index i, or stdin when
// it is absent or "-".
func readInput(cmd *cli.Command, i int) (string, error) {
	name := cmd.Args().Get(i)
	if name == "" || name == "-" {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

// resolvePolicy returns the --policy flag, falling back to the configured
// flatten.policy.
func resolvePolicy(cmd *cli.Command, cfg *config.Config) (flatten.Policy, error) {
	if cmd.IsSet("policy") {
		return flatten.ParsePolicy(cmd.String("policy"))
	}
	return flatten.ParsePolicy(cfg.Flatten.Policy)
}

func linesCmd() *cli.Command {
	return &cli.Command{
		Name:      "lines",
		Usage:     "Flatten a flat bridge dump into one line per attribute",
		ArgsUsage: "[file|-]",
		Flags:     []cli.Flag{newPolicyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := parseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := resolvePolicy(cmd, cfg)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, 0)
			if err != nil {
				return err
			}
			lines, st := flatten.Flatten(flatten.StrategyLine, raw, policy)
			slog.Debug("flattened lines", "policy", policy, "read", st.Read, "emitted", st.Emitted, "dropped", st.Dropped)
			return writeLines(outWriter(cmd), f, lines, &st)
		},
	}
}

func treeCmd() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Flatten an indented dump into one line per leaf",
		ArgsUsage: "[file|-]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := parseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, 0)
			if err != nil {
				return err
			}
			lines, st := flatten.Flatten(flatten.StrategyTree, raw, flatten.PolicyReset)
			slog.Debug("flattened tree", "read", st.Read, "emitted", st.Emitted)
			return writeLines(outWriter(cmd), f, lines, &st)
		},
	}
}

func factsCmd() *cli.Command {
	return &cli.Command{
		Name:  "facts",
		Usage: "Parse captures into structured resource facts",
		Description: `Without arguments every registered resource is gathered from the
capture directory (source.dir). With a resource name only that resource is
gathered. With a resource name and a file (or "-" for stdin) the file is
parsed instead.`,
		ArgsUsage: "[resource [file|-]]",
		Flags:     []cli.Flag{newPolicyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := parseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := resolvePolicy(cmd, cfg)
			if err != nil {
				return err
			}
			g := facts.NewGatherer(facts.DirFetcher{Dir: cfg.Source.Dir}, facts.WithPolicy(policy))
			w := outWriter(cmd)

			switch cmd.Args().Len() {
			case 0:
				results, err := g.Gather(ctx)
				if err != nil {
					return err
				}
				if f == formatText {
					out := make(map[string]any, len(results))
					for name, res := range results {
						out[name] = res.Facts
					}
					return writeValue(w, f, out)
				}
				return writeValue(w, f, results)
			case 1:
				res, err := g.GatherOne(ctx, cmd.Args().First())
				if err != nil {
					return err
				}
				return writeResult(w, f, res)
			default:
				raw, err := readInput(cmd, 1)
				if err != nil {
					return err
				}
				res, err := g.Parse(cmd.Args().First(), raw)
				if err != nil {
					return err
				}
				return writeResult(w, f, res)
			}
		},
	}
}

// writeResult prints only the facts in text format.
func writeResult(w io.Writer, f outputFormat, res *facts.Result) error {
	if f == formatText {
		return writeValue(w, f, res.Facts)
	}
	return writeValue(w, f, res)
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the isamd daemon (HTTP and gRPC APIs)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-addr",
				Usage: "HTTP API listen address (empty to disable); default from config",
			},
			&cli.StringFlag{
				Name:  "grpc-addr",
				Usage: "gRPC API listen address (empty to disable); default from config",
			},
			&cli.BoolFlag{
				Name:  "shell",
				Usage: "also run the interactive shell on this terminal",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := daemon.Options{
				ConfigFile: cmd.String("config"),
				Shell:      cmd.Bool("shell"),
				LogWriter:  errWriter(cmd),
			}
			if cmd.IsSet("log-level") || cmd.Bool("debug") {
				lvl := logLevel(cmd)
				opts.LogLevel = &lvl
			}
			if cmd.IsSet("api-addr") {
				addr := cmd.String("api-addr")
				opts.APIAddr = &addr
			}
			if cmd.IsSet("grpc-addr") {
				addr := cmd.String("grpc-addr")
				opts.GRPCAddr = &addr
			}
			d, err := daemon.New(opts)
			if err != nil {
				return err
			}
			return d.Run(ctx)
		},
	}
}

func shellCmd() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Interactive shell over the capture directory",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := flatten.ParsePolicy(cfg.Flatten.Policy)
			if err != nil {
				return err
			}
			store, g := facts.NewStoreGatherer(
				configstore.Options{Dir: cfg.Source.Dir, History: cfg.Source.History},
				facts.WithPolicy(policy),
			)
			if err := store.Load(); err != nil {
				slog.Warn("failed to load captures", "dir", cfg.Source.Dir, "err", err)
			}

			var events *logging.EventBuffer
			if out, ok := ctx.Value(logOutputKey{}).(*logging.Output); ok {
				events = out.Events
			}
			return isamcli.New(store, g, events).Run(ctx)
		},
	}
}

func remoteCmd() *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Call a running isamd over gRPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   "127.0.0.1:50051",
				Usage:   "isamd gRPC address",
				Sources: cli.EnvVars("ISAM_GRPC_ADDR"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "per-call timeout",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "lines",
				Usage:     "Flatten a flat bridge dump remotely",
				ArgsUsage: "[file|-]",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "policy", Value: "reset", Usage: "context policy (reset, persist)"}},
				Action: remoteAction(func(ctx context.Context, cmd *cli.Command, c *grpcapi.Client, f outputFormat) error {
					policy, err := flatten.ParsePolicy(cmd.String("policy"))
					if err != nil {
						return err
					}
					raw, err := readInput(cmd, 0)
					if err != nil {
						return err
					}
					lines, err := c.FlattenLines(ctx, raw, policy)
					if err != nil {
						return err
					}
					return writeLines(outWriter(cmd), f, lines, nil)
				}),
			},
			{
				Name:      "tree",
				Usage:     "Flatten an indented dump remotely",
				ArgsUsage: "[file|-]",
				Action: remoteAction(func(ctx context.Context, cmd *cli.Command, c *grpcapi.Client, f outputFormat) error {
					raw, err := readInput(cmd, 0)
					if err != nil {
						return err
					}
					lines, err := c.FlattenTree(ctx, raw)
					if err != nil {
						return err
					}
					return writeLines(outWriter(cmd), f, lines, nil)
				}),
			},
			{
				Name:      "facts",
				Usage:     "Gather one resource from the daemon's store",
				ArgsUsage: "<resource>",
				Action: remoteAction(func(ctx context.Context, cmd *cli.Command, c *grpcapi.Client, f outputFormat) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: remote facts <resource>")
					}
					res, err := c.GatherFacts(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					if f == formatText {
						return writeValue(outWriter(cmd), f, res["facts"])
					}
					return writeValue(outWriter(cmd), f, res)
				}),
			},
			{
				Name:      "complete",
				Usage:     "Shell completion candidates for a partial command line",
				ArgsUsage: "<words...>",
				Action: remoteAction(func(ctx context.Context, cmd *cli.Command, c *grpcapi.Client, f outputFormat) error {
					cands, err := c.Complete(ctx, strings.Join(cmd.Args().Slice(), " "))
					if err != nil {
						return err
					}
					return writeLines(outWriter(cmd), f, cands, nil)
				}),
			},
		},
	}
}

type remoteFunc func(ctx context.Context, cmd *cli.Command, c *grpcapi.Client, f outputFormat) error

// remoteAction dials the daemon and runs fn under the --timeout deadline.
func remoteAction(fn remoteFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		f, err := parseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		addr := cmd.String("addr")
		c, err := grpcapi.Dial(addr)
		if err != nil {
			return err
		}
		defer c.Close()

		ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
		defer cancel()
		if err := fn(ctx, cmd, c, f); err != nil {
			return fmt.Errorf("isamd at %s: %w", addr, err)
		}
		return nil
	}
}
