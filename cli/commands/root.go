// Package commands implements the litecore CLI.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/satishbabariya/litecore/cli/internal/config"
	"github.com/satishbabariya/litecore/cli/internal/ui"
	"github.com/satishbabariya/litecore/cli/internal/version"
	"github.com/satishbabariya/litecore/internal/debug"
	"github.com/satishbabariya/litecore/runtime/client"
)

// settings is shared by every subcommand of one root command.
type settings struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func (s *settings) load() error {
	if s.configFile != "" {
		s.v.SetConfigFile(s.configFile)
	}
	cfg, err := config.Load(s.v)
	if err != nil {
		return err
	}
	s.cfg = cfg
	debug.Init(cfg.Debug)
	return nil
}

func (s *settings) options(extra ...client.Option) ([]client.Option, error) {
	opts, err := s.cfg.Options()
	if err != nil {
		return nil, err
	}
	if s.cfg.Debug {
		opts = append(opts, client.WithLogStatements(true))
	}
	return append(opts, extra...), nil
}

func (s *settings) connect(ctx context.Context, extra ...client.Option) (*client.Conn, error) {
	opts, err := s.options(extra...)
	if err != nil {
		return nil, err
	}
	return client.Connect(ctx, opts...)
}

func (s *settings) openPool(ctx context.Context, extra ...client.Option) (*client.Pool, error) {
	opts, err := s.options(extra...)
	if err != nil {
		return nil, err
	}
	return client.Open(ctx, opts...)
}

// NewRootCommand creates the litecore command tree.
func NewRootCommand() *cobra.Command {
	s := &settings{v: viper.New()}

	root := &cobra.Command{
		Use:   "litecore",
		Short: "Embedded SQLite client toolkit",
		Long: `litecore runs SQL against a local SQLite database through the
litecore connection pool, and includes a concurrent stress test.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return s.load()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configFile, "config", "", "config file (default is .litecore.yaml)")
	flags.String("database", "", "database file, or :memory:")
	flags.Bool("debug", false, "enable debug logging")
	_ = s.v.BindPFlag("database", flags.Lookup("database"))
	_ = s.v.BindPFlag("debug", flags.Lookup("debug"))

	root.AddCommand(NewInitCommand(s))
	root.AddCommand(NewExecCommand(s))
	root.AddCommand(NewShellCommand(s))
	root.AddCommand(NewStressCommand(s))
	root.AddCommand(NewDoctorCommand(s))
	root.AddCommand(NewVersionCommand())

	return root
}

// Execute runs the CLI.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}
