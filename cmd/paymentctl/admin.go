package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"go-college/config"
	paydb "go-college/payment/db"
	"go-college/web/controllers"
	"go-college/web/db"
)

func openDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	gdb, err := db.Connect(cfg.UsersDriver(), cfg.DSN, true)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gdb, nil
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and payment_orders tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gdb, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(gdb)

			if err := db.Sync(gdb); err != nil {
				return fmt.Errorf("migrate users: %w", err)
			}
			if cfg.DBDriver == "mysql" || cfg.DBDriver == "sqlite" {
				if err := paydb.Migrate(gdb); err != nil {
					return fmt.Errorf("migrate payment orders: %w", err)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration complete")
			return nil
		},
	}
}

func createAdminCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create-admin [email]",
		Short: "Create an admin account, or promote an existing user",
		Long: `Create an admin account, or promote an existing user to admin.

The password for a new account is read from the first line of stdin:
  echo "$ADMIN_PASSWORD" | paymentctl create-admin bursar@college.edu --name Bursar`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gdb, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(gdb)
			if err := db.Sync(gdb); err != nil {
				return err
			}

			ctx := cmd.Context()
			users := db.NewUsers(gdb)
			existing, err := users.ByEmail(ctx, args[0])
			switch {
			case err == nil:
				if err := users.SetRole(ctx, existing.ID, db.RoleAdmin); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "promoted %s to admin\n", existing.Email)
				return nil
			case !errors.Is(err, db.ErrUserNotFound):
				return err
			}

			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if len(password) < 8 {
				return fmt.Errorf("a password of at least 8 characters is required on stdin")
			}
			hash, err := controllers.HashPassword(password)
			if err != nil {
				return err
			}

			u := &db.User{Email: args[0], Password: hash, Name: name, Role: db.RoleAdmin}
			if err := users.Create(ctx, u); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new account")
	return cmd
}
