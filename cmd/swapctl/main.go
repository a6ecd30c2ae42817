// swapctl 运维命令：迁移、补种徽章、重算评分统计、授予管理员。
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skillswap/internal/app"
	"skillswap/internal/core/config"
	"skillswap/internal/core/logger"
	"skillswap/internal/domain"
	"skillswap/internal/repo"
)

var (
	configPath string
	log        *zap.Logger
	cfg        *config.Config
	// closeLog Sync 并关闭日志文件；出错退出时 main 也会调用
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "swapctl",
	Short:         "SkillSwap maintenance commands",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		cfg = config.Load(configPath)
		var cleanup func()
		log, cleanup = logger.FromConfig(cfg.Log, zap.String("bin", "swapctl"))
		closeLog = sync.OnceFunc(cleanup)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) { closeLog() },
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update all tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := app.OpenDB(cfg, log)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := repo.Migrate(db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrate done", zap.Int("tables", len(domain.Models())))
		return nil
	},
}

var seedBadgesCmd = &cobra.Command{
	Use:   "seed-badges",
	Short: "Insert the built-in badge catalog (idempotent)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			bs, err := a.Services.Aggregator.SeedBadges(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range bs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.ID, b.Name)
			}
			return nil
		})
	},
}

var recomputeUser string

var recomputeCmd = &cobra.Command{
	Use:   "recompute-stats",
	Short: "Recompute rating and completed-swap counters from stored rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if recomputeUser != "" {
				if err := a.Services.Aggregator.RecomputeUser(cmd.Context(), recomputeUser); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "recomputed %s\n", recomputeUser)
				return nil
			}
			n, err := a.Services.Aggregator.RecomputeAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recomputed %d users\n", n)
			return nil
		})
	},
}

var grantAdminCmd = &cobra.Command{
	Use:   "grant-admin <email|username|id>",
	Short: "Give a user the admin role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			u, err := a.Services.Admin.SetRole(cmd.Context(), args[0], domain.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now admin\n", u.Username, u.ID)
			return nil
		})
	},
}

func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, cleanup, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(a)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "config file path")
	recomputeCmd.Flags().StringVar(&recomputeUser, "user", "", "only recompute this user id")
	rootCmd.AddCommand(migrateCmd, seedBadgesCmd, recomputeCmd, grantAdminCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// RunE 失败时 PersistentPostRun 不执行
		closeLog()
		fmt.Fprintln(os.Stderr, "swapctl:", err)
		os.Exit(1)
	}
}
