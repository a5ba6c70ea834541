// Package main 提供 fieldtrack 命令行入口。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fieldtrack/internal/config"
	"fieldtrack/internal/logging"
	"fieldtrack/internal/server"
	"fieldtrack/internal/service/roster"
	"fieldtrack/internal/tabular"
)

var (
	port          int
	devMode       bool
	dataDir       string
	override      string
	mealDeduction bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldtrack",
		Short: "Field progress and roster tracking over shared workbooks",
		Long: `fieldtrack records construction milestones, cable spans and daily
roster hours into shared .xlsx workbooks. Without a subcommand it starts the HTTP API.`,
		RunE:         runServe,
		SilenceUsage: true,
	}
	addServeFlags(rootCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	addServeFlags(serveCmd)

	sheetsCmd := &cobra.Command{
		Use:   "sheets [substring]",
		Short: "List workbook titles containing a substring",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSheets,
	}

	shiftCmd := &cobra.Command{
		Use:   "shift <start> <end>",
		Short: "Preview hours and shift letter for a start/end time (HH:MM)",
		Args:  cobra.ExactArgs(2),
		RunE:  runShift,
	}
	shiftCmd.Flags().StringVar(&override, "override", "AUTO", "Shift override: AUTO, DAY or NIGHT")
	shiftCmd.Flags().BoolVar(&mealDeduction, "meal", true, "Apply the fixed 1h meal deduction")

	columnCmd := &cobra.Command{
		Use:   "column <day>",
		Short: "Resolve the roster column for a calendar day",
		Args:  cobra.ExactArgs(1),
		RunE:  runColumn,
	}

	rootCmd.AddCommand(serveCmd, sheetsCmd, shiftCmd, columnCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	cmd.Flags().StringVar(&dataDir, "dataDir", "", "数据目录 (覆盖配置文件)")
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig() *config.AppConfig {
	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败，使用默认配置: %v\n", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	if port > 0 && !info.PortSpecified {
		cfg.Server.Port = port
	}
	if devMode {
		cfg.Server.DevMode = true
	}
	if dataDir != "" {
		cfg.Data.DataDir = dataDir
	}
	return cfg
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := logging.New(cfg.Server.DevMode)
	defer func() { _ = logger.Sync() }()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			zap.S().Warnf("退出前关闭失败: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("服务启动中，监听端口 %d ...", cfg.Server.Port)
		errCh <- srv.Run(addr)
	}()

	// 等待信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case <-quit:
		zap.S().Info("正在关闭服务...")
		return nil
	}
}

func runSheets(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	books := tabular.NewDirStore(config.WorkbooksDir(cfg))
	defer books.Close()

	substr := ""
	if len(args) == 1 {
		substr = args[0]
	}
	titles, err := books.ListTitlesContaining(context.Background(), substr)
	if err != nil {
		return err
	}
	for _, t := range titles {
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}

func runShift(cmd *cobra.Command, args []string) error {
	o, err := roster.ParseOverride(override)
	if err != nil {
		return err
	}
	shift, err := roster.ComputeShift(args[0], args[1], o, mealDeduction)
	if err != nil {
		return err
	}
	return printJSON(cmd, shift)
}

func runColumn(cmd *cobra.Command, args []string) error {
	day, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid day %q: %w", args[0], err)
	}
	cfg := loadConfig()
	books := tabular.NewDirStore(config.WorkbooksDir(cfg))
	defer books.Close()

	ledger := roster.NewLedger(books, roster.Options{
		Workbook:     cfg.Workbooks.RosterBook,
		TitlePattern: cfg.Workbooks.RosterPattern,
		Sheet:        cfg.Workbooks.RosterSheet,
	})
	col, err := ledger.DayColumn(context.Background(), day)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]int{"day": day, "column": col})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
