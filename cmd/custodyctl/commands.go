package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"custodian/internal/app"
	"custodian/internal/audit/stream"
	jwttoken "custodian/internal/jwt_token"
	"custodian/internal/platform/config"
	"custodian/internal/platform/logger"
	"custodian/internal/storage/postgres"
	id "custodian/pkg/domain"
	"custodian/pkg/requestcontext"
)

// opener builds the application for one command invocation.
type opener func(ctx context.Context, cfg config.Config, log *slog.Logger) (*app.App, error)

func openApp(ctx context.Context, cfg config.Config, log *slog.Logger) (*app.App, error) {
	// CLI runs must not collide with a server's default registry.
	return app.New(ctx, cfg, log, app.WithRegisterer(prometheus.NewRegistry()))
}

type cli struct {
	open       opener
	configPath string
	orgID      string
	actorID    string
	timeout    time.Duration
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:           "custodyctl",
		Short:         "Operate the evidence custody subsystem",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", os.Getenv("CUSTODIAN_CONFIG"), "path to YAML config file")
	root.PersistentFlags().StringVar(&c.orgID, "org", "", "organization id the operation runs in")
	root.PersistentFlags().StringVar(&c.actorID, "actor", os.Getenv("CUSTODIAN_OPERATOR_ID"), "operator user id recorded in the audit log")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 5*time.Minute, "overall deadline for the command")

	auditCmd := &cobra.Command{Use: "audit", Short: "Audit trail maintenance"}
	auditCmd.AddCommand(c.replayCmd())
	topicsCmd := &cobra.Command{Use: "topics", Short: "Security stream topic management"}
	topicsCmd.AddCommand(c.ensureTopicCmd())
	tokenCmd := &cobra.Command{Use: "token", Short: "Access token helpers"}
	tokenCmd.AddCommand(c.issueTokenCmd())

	root.AddCommand(c.migrateCmd(), c.recountCmd(), c.verifyCmd(), auditCmd, topicsCmd, tokenCmd)
	return root
}

// withApp loads config, opens the application and runs fn under the command deadline.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, "text")

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	a, err := c.open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing backends", "error", err)
		}
	}()
	return fn(ctx, a)
}

func (c *cli) requestContext() (requestcontext.RequestContext, error) {
	if c.orgID == "" || c.actorID == "" {
		return requestcontext.RequestContext{}, errors.New("--org and --actor are required")
	}
	orgID, err := id.ParseOrganizationID(c.orgID)
	if err != nil {
		return requestcontext.RequestContext{}, err
	}
	actorID, err := id.ParseActorID(c.actorID)
	if err != nil {
		return requestcontext.RequestContext{}, err
	}
	return requestcontext.RequestContext{ActorID: actorID, OrganizationID: orgID, Role: "operator"}, nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.DB == nil {
					return errors.New("migrate needs a database; set DATABASE_URL")
				}
				n, err := postgres.Migrate(ctx, a.DB, a.Logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			})
		},
	}
}

func (c *cli) recountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recount <case-id>...",
		Short: "Recompute case counters from the evidence rows and fix drift",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.requestContext()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				for _, arg := range args {
					caseID, err := id.ParseCaseID(arg)
					if err != nil {
						return err
					}
					report, err := a.Evidence.RecountCase(ctx, rc, caseID)
					if err != nil {
						return fmt.Errorf("case %s: %w", arg, err)
					}
					printRecount(out, report.CaseID.String(), report.Drifted(),
						report.Before.EvidenceCount, report.After.EvidenceCount,
						report.Before.StorageTotal, report.After.StorageTotal)
				}
				return nil
			})
		},
	}
}

func printRecount(out io.Writer, caseID string, drifted bool, countBefore, countAfter int64, totalBefore, totalAfter uint64) {
	if !drifted {
		fmt.Fprintf(out, "%s ok count=%d storage=%d\n", caseID, countAfter, totalAfter)
		return
	}
	fmt.Fprintf(out, "%s fixed count=%d->%d storage=%d->%d\n", caseID, countBefore, countAfter, totalBefore, totalAfter)
}

func (c *cli) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <evidence-id>...",
		Short: "Verify every custody signature and the derived status of evidence items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := c.requestContext()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				broken := 0
				for _, arg := range args {
					evidenceID, err := id.ParseEvidenceID(arg)
					if err != nil {
						return err
					}
					report, err := a.Custody.VerifyLedger(ctx, rc, evidenceID)
					if err != nil {
						return fmt.Errorf("evidence %s: %w", arg, err)
					}
					if report.Valid() {
						fmt.Fprintf(out, "%s verified records=%d status=%s\n", arg, report.Records, report.Status)
						continue
					}
					broken++
					fmt.Fprintf(out, "%s FAILED records=%d bad_signatures=%d out_of_order=%d status=%s derived=%s\n",
						arg, report.Records, len(report.Failed), len(report.OutOfOrder), report.Status, report.DerivedStatus)
				}
				if broken > 0 {
					return fmt.Errorf("%d of %d ledgers failed verification", broken, len(args))
				}
				return nil
			})
		},
	}
}

func (c *cli) replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Move spilled audit entries from Redis back into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Redis == nil {
					return errors.New("audit replay needs the spill queue; set REDIS_URL")
				}
				n, err := a.Audit.Replay(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d audit entr%s\n", n, plural(n, "y", "ies"))
				return nil
			})
		},
	}
}

func (c *cli) ensureTopicCmd() *cobra.Command {
	var (
		partitions int32
		replicas   int16
	)
	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Create the security event topic if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app.App) error {
				if a.Kafka == nil {
					return errors.New("topics need brokers; set KAFKA_BROKERS")
				}
				topic := a.Config.Kafka.SecurityTopic
				if topic == "" {
					topic = stream.DefaultTopic
				}
				if err := stream.EnsureTopic(ctx, a.Kafka, topic, partitions, replicas); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "topic %s ready\n", topic)
				return nil
			})
		},
	}
	cmd.Flags().Int32Var(&partitions, "partitions", 3, "partition count for a new topic")
	cmd.Flags().Int16Var(&replicas, "replication-factor", 1, "replication factor for a new topic")
	return cmd
}

func (c *cli) issueTokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign an access token for --actor in --org",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := c.requestContext()
			if err != nil {
				return err
			}
			rc.Role = role
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "custodian", "custodian-api")
			token, err := svc.GenerateAccessToken(rc, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "examiner", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
