package cli

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/user"
	"github.com/flockhq/flock/internal/app/runtime"
	"github.com/flockhq/flock/internal/app/services/auth"
	"github.com/flockhq/flock/internal/app/tenancy"
	apperrors "github.com/flockhq/flock/internal/errors"
)

type seedOptions struct {
	name          string
	slug          string
	tier          string
	adminEmail    string
	adminName     string
	adminPassword string
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	so := &seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a church and its first admin login",
		Long: "Creates the tenant when its slug is unused, then adds an admin user.\n" +
			"The password may also be supplied through FLOCK_SEED_ADMIN_PASSWORD.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if so.adminPassword == "" {
				so.adminPassword = os.Getenv("FLOCK_SEED_ADMIN_PASSWORD")
			}
			if so.name == "" || so.slug == "" || so.adminEmail == "" || so.adminPassword == "" {
				return errors.New("--tenant-name, --slug, --admin-email and an admin password are required")
			}
			return opts.withApplication(cmd.Context(), func(a *runtime.Application) error {
				return so.run(cmd.Context(), a, NewPrinter(cmd.OutOrStdout()))
			})
		},
	}
	cmd.Flags().StringVar(&so.name, "tenant-name", "", "church display name")
	cmd.Flags().StringVar(&so.slug, "slug", "", "church slug used at login")
	cmd.Flags().StringVar(&so.tier, "plan", string(plan.TierStarter), "plan tier")
	cmd.Flags().StringVar(&so.adminEmail, "admin-email", "", "admin login email")
	cmd.Flags().StringVar(&so.adminName, "admin-name", "Administrator", "admin display name")
	cmd.Flags().StringVar(&so.adminPassword, "admin-password", "", "admin password")
	return cmd
}

func (so *seedOptions) run(ctx context.Context, a *runtime.Application, p *Printer) error {
	svc := a.App()

	t, err := svc.Tenants.GetBySlug(ctx, so.slug)
	switch {
	case err == nil:
		p.Info("tenant %s already exists (%s)", t.Slug, t.ID)
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		if t, err = svc.Tenants.Create(ctx, so.name, so.slug, plan.Tier(so.tier)); err != nil {
			return err
		}
		p.Success("created tenant %s on the %s plan (%s)", t.Slug, t.Plan, t.ID)
	default:
		return err
	}

	u, err := svc.Auth.CreateUser(tenancy.WithTenant(ctx, t.ID), auth.NewUser{
		Email:    so.adminEmail,
		Name:     so.adminName,
		Role:     user.RoleAdmin,
		Password: so.adminPassword,
	})
	if err != nil {
		return err
	}
	p.Success("created admin %s (%s)", u.Email, u.ID)
	return nil
}
