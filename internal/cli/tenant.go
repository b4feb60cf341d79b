package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/flockhq/flock/internal/app/domain/plan"
	"github.com/flockhq/flock/internal/app/domain/tenant"
	"github.com/flockhq/flock/internal/app/runtime"
	"github.com/flockhq/flock/internal/app/services/plans"
)

var tenantHeader = []string{"SLUG", "NAME", "PLAN", "AI", "QUOTA", "ID"}

func newTenantCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Administer churches",
	}
	cmd.AddCommand(newTenantListCmd(opts), newTenantPlanCmd(opts), newTenantAICmd(opts))
	return cmd
}

func newTenantListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every church",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApplication(cmd.Context(), func(a *runtime.Application) error {
				list, err := a.App().Tenants.List(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, t := range list {
					rows = append(rows, tenantRow(t))
				}
				NewPrinter(cmd.OutOrStdout()).Table(tenantHeader, rows)
				return nil
			})
		},
	}
}

func newTenantPlanCmd(opts *rootOptions) *cobra.Command {
	var slug, tier string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Move a church to another plan tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slug == "" || tier == "" {
				return errors.New("--slug and --tier are required")
			}
			return opts.withApplication(cmd.Context(), func(a *runtime.Application) error {
				return updateTenant(cmd, a, slug, func(ctx context.Context, id string) error {
					_, err := a.App().Tenants.ChangePlan(ctx, id, plan.Tier(tier))
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "church slug")
	cmd.Flags().StringVar(&tier, "tier", "", "target plan tier")
	return cmd
}

func newTenantAICmd(opts *rootOptions) *cobra.Command {
	var (
		slug    string
		enabled bool
		quota   int64
		reset   bool
	)
	cmd := &cobra.Command{
		Use:   "ai-override",
		Short: "Override or restore a church's sermon helper access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if slug == "" {
				return errors.New("--slug is required")
			}
			return opts.withApplication(cmd.Context(), func(a *runtime.Application) error {
				return updateTenant(cmd, a, slug, func(ctx context.Context, id string) error {
					var err error
					if reset {
						_, err = a.App().Tenants.ClearAIOverride(ctx, id)
					} else {
						_, err = a.App().Tenants.SetAIOverride(ctx, id, enabled, quota)
					}
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "church slug")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable the sermon helper")
	cmd.Flags().Int64Var(&quota, "quota", 0, "monthly token quota")
	cmd.Flags().BoolVar(&reset, "clear", false, "drop the override and use plan defaults")
	return cmd
}

func tenantRow(t tenant.Tenant) []string {
	ai := "off"
	if t.AIEnabled {
		ai = "on"
	}
	if t.AIQuotaOverride {
		ai += " (override)"
	}
	return []string{t.Slug, t.Name, t.Plan, ai, formatInt(t.AITokenQuota), t.ID}
}

func updateTenant(cmd *cobra.Command, a *runtime.Application, slug string, fn func(context.Context, string) error) error {
	ctx := cmd.Context()
	t, err := a.App().Tenants.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := fn(ctx, t.ID); err != nil {
		return err
	}
	t, err = a.App().Tenants.Get(ctx, t.ID)
	if err != nil {
		return err
	}
	NewPrinter(cmd.OutOrStdout()).Table(tenantHeader, [][]string{tenantRow(t)})
	return nil
}

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rows [][]string
			for _, p := range plans.DefaultCatalog().Tiers() {
				users := "unlimited"
				if p.MaxUsers > 0 {
					users = strconv.Itoa(p.MaxUsers)
				}
				ai := "no"
				if p.AIEnabled {
					ai = "yes"
				}
				rows = append(rows, []string{string(p.Tier), p.DisplayName, ai, formatInt(p.MonthlyTokenQuota), users})
			}
			NewPrinter(cmd.OutOrStdout()).Table([]string{"TIER", "NAME", "AI", "TOKENS/MONTH", "USERS"}, rows)
			return nil
		},
	}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
