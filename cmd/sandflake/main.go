package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sandflake/internal/config"
	"sandflake/internal/logger"
	"sandflake/internal/server"
	"sandflake/pkg/idgen/sandflake"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "sandflake",
		Short:         "Sandflake ID service",
		Long:          "Sandflake issues 64-bit time-ordered identifiers with an embedded node and object class.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().Int64("node-id", 0, "node identity (0-63)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	mustBind(v, "node.id", rootCmd.PersistentFlags().Lookup("node-id"))
	mustBind(v, "log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newServeCmd(v, &configPath))
	rootCmd.AddCommand(newGenerateCmd(v, &configPath))
	rootCmd.AddCommand(newDecodeCmd())
	return rootCmd
}

func newServeCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the HTTP server",
		Aliases: []string{"server", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log := loadConfig(v, *configPath)
			defer func() { _ = log.Sync() }()

			gen, err := sandflake.NewWithConfig(cfg.GeneratorConfig(log))
			if err != nil {
				log.Fatal("创建生成器失败", zap.Error(err))
			}

			gin.SetMode(cfg.Server.Mode)
			srv, err := server.New(cfg, gen, log)
			if err != nil {
				log.Fatal("创建HTTP服务失败", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("no-auth", false, "disable the authorization gate")
	mustBind(v, "server.addr", cmd.Flags().Lookup("addr"))
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if noAuth, _ := cmd.Flags().GetBool("no-auth"); noAuth {
			v.Set("auth.enabled", false)
		}
	}
	return cmd
}

func newGenerateCmd(v *viper.Viper, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print new identifiers to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")
			className, _ := cmd.Flags().GetString("class")
			format, _ := cmd.Flags().GetString("format")

			class, err := sandflake.ParseObjectClass(className)
			if err != nil {
				return err
			}

			cfg, log := loadConfig(v, *configPath)
			defer func() { _ = log.Sync() }()

			gen, err := sandflake.NewWithConfig(cfg.GeneratorConfig(log))
			if err != nil {
				log.Fatal("创建生成器失败", zap.Error(err))
			}
			return generate(cmd.OutOrStdout(), gen, count, class, format)
		},
	}
	cmd.Flags().IntP("count", "n", 1, "number of identifiers")
	cmd.Flags().String("class", sandflake.ObjectClassUnknown.String(), "object class name or code")
	cmd.Flags().StringP("format", "f", "dec", "output format: dec, hex, bin")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Decode identifiers into their fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decode(cmd.OutOrStdout(), args)
		},
	}
}

// loadConfig 读取配置并创建 logger，失败时直接退出
func loadConfig(v *viper.Viper, path string) (*config.Config, *zap.Logger) {
	cfg, err := config.Load(v, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, log
}

func generate(w io.Writer, gen server.Issuer, count int, class sandflake.ObjectClass, format string) error {
	formatID, err := idFormatter(format)
	if err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("count must be positive, got %d", count)
	}

	var ids []sandflake.ID
	if class == sandflake.ObjectClassUnknown {
		if ids, err = gen.NextIDBatch(count); err != nil {
			return err
		}
	} else {
		ids = make([]sandflake.ID, 0, count)
		for i := 0; i < count; i++ {
			id, err := gen.NextObjectID(class)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		if _, err := fmt.Fprintln(w, formatID(id)); err != nil {
			return err
		}
	}
	return nil
}

func idFormatter(format string) (func(sandflake.ID) string, error) {
	switch format {
	case "dec", "":
		return sandflake.ID.String, nil
	case "hex":
		return sandflake.ID.Hex, nil
	case "bin":
		return sandflake.ID.Binary, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func decode(w io.Writer, args []string) error {
	for _, arg := range args {
		id, err := sandflake.ParseID(arg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "id=%s time=%s node=%d class=%s sequence=%d\n",
			id, id.Time().Format("2006-01-02T15:04:05.000Z07:00"), id.NodeID(), id.ObjectClass(), id.Sequence())
		if err != nil {
			return err
		}
	}
	return nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
