package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"taskManager/internal/app"
	"taskManager/internal/config"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	"taskManager/internal/repository/postgres"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type cli struct {
	configPath string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "taskmanager",
		Short: "Многопользовательский трекер задач",
		Long: `HTTP API для пользователей, категорий и задач.
Конфигурация читается из config.yml, .env и переменных TASKMANAGER_*.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "путь к config.yml")

	rootCmd.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.configCmd(),
		c.userCmd(),
	)
	return rootCmd
}

func (c *cli) serveCmd() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP сервер",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrateFirst && c.cfg.Repository.Type == config.RepositoryPostgres {
				if err := c.initLogger(); err != nil {
					return err
				}
				if err := postgres.MigrateUp(c.cfg.Database.URL); err != nil {
					return err
				}
			}

			a := app.New(c.cfg)
			if err := a.Init(ctx); err != nil {
				a.Close()
				return err
			}
			return a.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "применить миграции перед запуском")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Миграции схемы PostgreSQL",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if c.cfg.Repository.Type != config.RepositoryPostgres {
				return errors.New("миграции доступны только для repository.type=postgres")
			}
			return c.initLogger()
		},
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить все миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.MigrateUp(c.cfg.Database.URL)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции",
		RunE: func(cmd *cobra.Command, args []string) error {
			return postgres.MigrateDown(c.cfg.Database.URL, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "число откатываемых миграций, 0 = все")

	cmd.AddCommand(up, down)
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с конфигурацией",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Показать действующую конфигурацию",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}

// userCmd административные операции, которых нет в HTTP API.
func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Администрирование пользователей",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Список пользователей",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				users, err := a.Users().List(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tSTATUS\tREGISTERED")
				for _, u := range users {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
						u.ID, u.Username, u.Email, u.Status, u.RegistrationDate.Format(time.DateTime))
				}
				return tw.Flush()
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <id> <0|1>",
		Short: "Включить или отключить пользователя",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := strconv.ParseInt(args[1], 10, 16)
			if err != nil || !user.Status(st).Valid() {
				return fmt.Errorf("статус должен быть 0 или 1, получено %q", args[1])
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Users().SetStatus(ctx, id, user.Status(st)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "пользователь %d: статус %d\n", id, st)
				return nil
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Удалить пользователя вместе с категориями и задачами",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Users().Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "пользователь %d удалён\n", id)
				return nil
			})
		},
	}

	cmd.AddCommand(list, status, del)
	return cmd
}

func (c *cli) initLogger() error {
	return logger.Init(c.cfg.Logging.Development, c.cfg.Logging.Level)
}

func (c *cli) withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a := app.New(c.cfg)
	defer a.Close()

	if err := a.InitCore(ctx); err != nil {
		return err
	}
	return fn(ctx, a)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("неверный id %q", s)
	}
	return id, nil
}
