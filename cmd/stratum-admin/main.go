// Package main is the entrypoint for the Stratum admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	_ "embed"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/stratum-grc/stratum/internal/auth"
	"github.com/stratum-grc/stratum/internal/db"
	"github.com/stratum-grc/stratum/internal/models"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

//go:embed seed_taxonomies.yaml
var seedTaxonomiesYAML []byte

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "stratum-admin",
		Short:        "Stratum administration CLI",
		Long:         "Administrative tasks for a Stratum deployment: bootstrap the first organization and admin user, and seed default taxonomies.",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newBootstrapCmd(),
		newSeedTaxonomiesCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Stratum Admin %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// connect opens a small admin connection pool.
func connect(ctx context.Context, dbURL string) (*db.DB, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, fmt.Errorf("database URL required: use --db flag or set DATABASE_URL")
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger()

	cfg := db.DefaultConfig(dbURL)
	cfg.MaxConns = 2
	cfg.MinConns = 1

	return db.New(ctx, cfg, logger)
}

func newBootstrapCmd() *cobra.Command {
	var (
		dbURL    string
		orgName  string
		orgSlug  string
		email    string
		name     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first organization and its admin user",
		Long: `Create an organization and a local admin user in one step.

The admin user logs in with email and password at /auth/local-login.
Additional users should authenticate through the configured OIDC provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}

			existing, err := database.GetOrganizationBySlug(ctx, orgSlug)
			if err != nil {
				return fmt.Errorf("check organization: %w", err)
			}
			if existing != nil {
				return fmt.Errorf("organization with slug %q already exists", orgSlug)
			}

			org := models.NewOrganization(orgName, orgSlug)
			if err := database.CreateOrganization(ctx, org); err != nil {
				return fmt.Errorf("create organization: %w", err)
			}

			admin := models.NewUser(org.ID, email, name, models.UserRoleAdmin)
			admin.PasswordHash = hash
			if err := database.CreateUser(ctx, admin); err != nil {
				return fmt.Errorf("create admin user: %w", err)
			}

			fmt.Printf("Organization %q created (%s)\n", org.Name, org.ID)
			fmt.Printf("Admin user %q created (%s)\n", admin.Email, admin.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "Database URL (or set DATABASE_URL env var)")
	cmd.Flags().StringVar(&orgName, "org-name", "", "Organization name (required)")
	cmd.Flags().StringVar(&orgSlug, "org-slug", "", "Organization slug (required)")
	cmd.Flags().StringVar(&email, "email", "", "Admin email (required)")
	cmd.Flags().StringVar(&name, "name", "Administrator", "Admin display name")
	cmd.Flags().StringVar(&password, "password", "", "Admin password, at least 12 characters (required)")
	_ = cmd.MarkFlagRequired("org-name")
	_ = cmd.MarkFlagRequired("org-slug")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// taxonomySeed mirrors the structure of seed_taxonomies.yaml.
type taxonomySeed struct {
	Taxonomies []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Bands       []struct {
			Name  string  `yaml:"name"`
			Min   float64 `yaml:"min"`
			Max   float64 `yaml:"max"`
			Color string  `yaml:"color"`
		} `yaml:"bands"`
	} `yaml:"taxonomies"`
}

func newSeedTaxonomiesCmd() *cobra.Command {
	var (
		dbURL   string
		orgSlug string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "seed-taxonomies",
		Short: "Create default taxonomies for an organization",
		Long: `Create a starter set of taxonomies (financial, operational, reputational)
with severity bands for the given organization. Use --file to seed from a
custom YAML definition instead of the built-in set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			raw := seedTaxonomiesYAML
			if file != "" {
				var err error
				raw, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read seed file: %w", err)
				}
			}

			var seed taxonomySeed
			if err := yaml.Unmarshal(raw, &seed); err != nil {
				return fmt.Errorf("parse seed file: %w", err)
			}
			if len(seed.Taxonomies) == 0 {
				return fmt.Errorf("seed file defines no taxonomies")
			}

			database, err := connect(ctx, dbURL)
			if err != nil {
				return err
			}
			defer database.Close()

			org, err := database.GetOrganizationBySlug(ctx, orgSlug)
			if err != nil {
				return fmt.Errorf("look up organization: %w", err)
			}
			if org == nil {
				return fmt.Errorf("no organization with slug %q", orgSlug)
			}

			for _, t := range seed.Taxonomies {
				tax := &models.Taxonomy{
					OrgID:       org.ID,
					Name:        t.Name,
					Description: t.Description,
				}
				for i, b := range t.Bands {
					tax.Bands = append(tax.Bands, &models.SeverityBand{
						Name:     b.Name,
						Min:      b.Min,
						Max:      b.Max,
						Color:    b.Color,
						Position: i + 1,
					})
				}
				if err := database.CreateTaxonomy(ctx, tax); err != nil {
					return fmt.Errorf("create taxonomy %q: %w", t.Name, err)
				}
				fmt.Printf("Taxonomy %q created with %d bands\n", tax.Name, len(tax.Bands))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "Database URL (or set DATABASE_URL env var)")
	cmd.Flags().StringVar(&orgSlug, "org", "", "Organization slug (required)")
	cmd.Flags().StringVar(&file, "file", "", "Custom taxonomy seed YAML file")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}
