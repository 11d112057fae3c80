package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"attendvault/internal/attendance"
	"attendvault/internal/cardvault"
	"attendvault/internal/config"
	"attendvault/internal/store"
)

func newRootCmd(cfg config.App) *cobra.Command {
	root := &cobra.Command{
		Use:           "attendancectl",
		Short:         "Maintenance commands for the attendance and card vault databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.AttendanceDBDriver, "driver", cfg.AttendanceDBDriver, "attendance database driver (sqlite3 or pgx)")
	root.PersistentFlags().StringVar(&cfg.AttendanceDBDSN, "dsn", cfg.AttendanceDBDSN, "attendance database DSN")

	root.AddCommand(
		migrateCmd(&cfg),
		grantAdminCmd(&cfg),
		revokeAdminCmd(&cfg),
		listAdminsCmd(&cfg),
	)
	return root
}

func openAttendance(ctx context.Context, cfg *config.App) (*store.DB, *attendance.Repository, error) {
	db, err := store.Open(ctx, cfg.AttendanceDBDriver, cfg.AttendanceDBDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, attendance.Schema); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, attendance.NewRepository(db), nil
}

func migrateCmd(cfg *config.App) *cobra.Command {
	var cards bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the attendance tables, and with --cards the business card table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, _, err := openAttendance(ctx, cfg)
			if err != nil {
				return err
			}
			db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "attendance schema ready (%s)\n", db.Dialect)

			if !cards {
				return nil
			}
			cdb, err := store.Open(ctx, cfg.CardsDBDriver, cfg.CardsDBDSN)
			if err != nil {
				return err
			}
			defer cdb.Close()
			if err := cdb.Migrate(ctx, cardvault.Schema); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "card schema ready (%s)\n", cdb.Dialect)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cards, "cards", false, "also migrate the card vault database")
	return cmd
}

// lookupUser accepts a numeric id or an email address.
func lookupUser(ctx context.Context, repo *attendance.Repository, ref string) (*attendance.User, error) {
	var (
		u   *attendance.User
		err error
	)
	if id, perr := strconv.ParseInt(ref, 10, 64); perr == nil {
		u, err = repo.UserByID(ctx, id)
	} else {
		u, err = repo.UserByEmail(ctx, ref)
	}
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("no user %q", ref)
	}
	return u, nil
}

func grantAdminCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "grant-admin <id|email>",
		Short: "Give a user admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, repo, err := openAttendance(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := lookupUser(ctx, repo, args[0])
			if err != nil {
				return err
			}
			if err := repo.GrantAdmin(ctx, u.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", u.Username)
			return nil
		},
	}
}

func revokeAdminCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-admin <id|email>",
		Short: "Remove a user's admin rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, repo, err := openAttendance(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			u, err := lookupUser(ctx, repo, args[0])
			if err != nil {
				return err
			}
			if err := repo.RevokeAdmin(ctx, u.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer an admin\n", u.Username)
			return nil
		},
	}
}

func listAdminsCmd(cfg *config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "Print every admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, repo, err := openAttendance(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			admins, err := repo.ListAdmins(ctx)
			if err != nil {
				return err
			}
			return printAdmins(cmd.OutOrStdout(), admins)
		},
	}
}

func printAdmins(w io.Writer, admins []attendance.User) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL")
	for _, u := range admins {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", u.ID, u.Username, u.Email)
	}
	return tw.Flush()
}
