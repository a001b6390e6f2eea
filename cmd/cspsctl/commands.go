package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/xelth-com/cspsgo/internal/config"
	"github.com/xelth-com/cspsgo/internal/database"
	"github.com/xelth-com/cspsgo/internal/models"
	"github.com/xelth-com/cspsgo/internal/services/importer"
	"github.com/xelth-com/cspsgo/internal/services/users"
	"github.com/xelth-com/cspsgo/internal/workflow"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage accounts"}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userListCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var in users.UserInput
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account (no login required, for bootstrapping)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if in.Password == "" {
				in.Password = os.Getenv("CSPS_USER_PASSWORD")
			}
			in.Role = models.Role(role)
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				user, err := users.NewService(db, cfg).Create(ctx, nil, in)
				if err != nil {
					return err
				}
				color.Green("✓ Created %s %s (%s)", user.Role, user.Email, user.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Username, "username", "", "login name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (default $CSPS_USER_PASSWORD)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&role, "role", string(models.RoleCoordinator), "admin or coordinator")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("email")
	return cmd
}

func userListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				system := workflow.Actor{Role: models.RoleAdmin}
				list, err := users.NewService(db, cfg).List(ctx, system, models.Role(role))
				if err != nil {
					return err
				}
				renderUsers(os.Stdout, list)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role filter")
	return cmd
}

func importCmd() *cobra.Command {
	var as string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import missions from a .csv, .xls or .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *database.DB) error {
				admin, err := users.NewService(db, cfg).FindByEmail(ctx, as)
				if err != nil {
					return fmt.Errorf("--as %s: %w", as, err)
				}
				actor := workflow.Actor{ID: admin.ID, Role: admin.Role}

				result, err := importer.NewService(db, cfg).Import(ctx, actor, filepath.Base(args[0]), "", data)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				}
				renderImport(os.Stdout, result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "email of the admin performing the import")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw result as JSON")
	cmd.MarkFlagRequired("as")
	return cmd
}

func renderUsers(w io.Writer, list []models.UserAuth) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Username", "Email", "Name", "Role", "Active"})
	for _, u := range list {
		tw.AppendRow(table.Row{u.ID, u.Username, u.Email, u.FullName(), u.Role, u.IsActive})
	}
	tw.Render()
}

// renderImport prints one table per outcome and a colored summary line
func renderImport(w io.Writer, res *importer.Result) {
	if len(res.Imported) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetTitle("Imported")
		tw.AppendHeader(table.Row{"ID", "Title", "Client", "Date", "Time", "Type", "Status"})
		for _, m := range res.Imported {
			tw.AppendRow(table.Row{m.ID, m.Title, m.Client, m.Date.Format("2006-01-02"), m.Time, m.Type, m.Status})
		}
		tw.Render()
	}

	if len(res.Ignored) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetTitle("Ignored")
		tw.AppendHeader(table.Row{"Row", "Title", "Reason"})
		for _, r := range res.Ignored {
			tw.AppendRow(table.Row{r.Row, r.Data["title"], r.Reason})
		}
		tw.Render()
	}

	if len(res.Errors) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(w)
		tw.SetTitle("Errors")
		tw.AppendHeader(table.Row{"Row", "Title", "Message"})
		for _, r := range res.Errors {
			tw.AppendRow(table.Row{r.Row, r.Data["title"], r.Message})
		}
		tw.Render()
	}

	s := res.Summary
	parts := []string{
		fmt.Sprintf("%d rows", s.Total),
		color.GreenString("%d imported", s.Imported),
		color.YellowString("%d ignored", s.Ignored),
	}
	if s.Errors > 0 {
		parts = append(parts, color.RedString("%d errors", s.Errors))
	} else {
		parts = append(parts, "0 errors")
	}
	fmt.Fprintln(w, strings.Join(parts, ", "))
}
