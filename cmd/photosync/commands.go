package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"classroom-photo-sync/internal/auth"
	"classroom-photo-sync/internal/capture"
	"classroom-photo-sync/internal/config"
	"classroom-photo-sync/internal/db"
	"classroom-photo-sync/internal/logger"
	"classroom-photo-sync/internal/model"
	"classroom-photo-sync/internal/roster"
	"classroom-photo-sync/internal/storage"
	"classroom-photo-sync/internal/sync"
	"classroom-photo-sync/pkg/errors"

	"github.com/spf13/cobra"
)

type app struct {
	cfg         *config.Config
	out         io.Writer
	newUploader func(cfg *config.Config) (storage.Uploader, error)

	mobile string
	code   string
}

func newS3Uploader(cfg *config.Config) (storage.Uploader, error) {
	return storage.NewS3Storage(cfg)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "photosync",
		Short:         "Capture classroom photos locally and sync them to S3",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Logging.Level, "console")
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		a.migrateCommand(),
		a.rosterCommand(),
		a.requestCodeCommand(),
		a.withLogin(a.captureCommand()),
		a.withLogin(a.listCommand()),
		a.withLogin(a.deleteCommand()),
		a.withLogin(a.uploadCommand()),
	)
	return root
}

// withLogin adds the credential flags every teacher-scoped command needs.
func (a *app) withLogin(cmd *cobra.Command) *cobra.Command {
	cmd.Flags().StringVar(&a.mobile, "mobile", "", "registered mobile number")
	cmd.Flags().StringVar(&a.code, "code", "", "one-time code from request-code")
	cmd.MarkFlagRequired("mobile")
	cmd.MarkFlagRequired("code")
	return cmd
}

func (a *app) repository(ctx context.Context) (db.Repository, error) {
	repo := db.NewRepository(a.cfg.Database.Path)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (a *app) authenticator(ctx context.Context) (*auth.Authenticator, error) {
	teachers, err := roster.Load(ctx, a.cfg.Roster.Path)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(teachers), nil
}

// login verifies --mobile/--code into a session that lives for this command.
func (a *app) login(ctx context.Context) (model.Teacher, error) {
	authenticator, err := a.authenticator(ctx)
	if err != nil {
		return model.Teacher{}, err
	}

	session := auth.NewSession()
	if _, err := authenticator.Login(session, a.mobile, a.code); err != nil {
		return model.Teacher{}, err
	}

	teacher, ok := session.Current()
	if !ok {
		return model.Teacher{}, errors.ErrNotAuthenticated
	}
	return teacher, nil
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the local photo database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.repository(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Database ready at %s\n", a.cfg.Database.Path)
			return nil
		},
	}
}

func (a *app) rosterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roster",
		Short: "List registered teachers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			teachers, err := roster.Load(cmd.Context(), a.cfg.Roster.Path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tMOBILE\tSCHOOL\tBRANCH\tCLASS")
			for _, t := range teachers.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Mobile, t.School, t.Branch, t.Class)
			}
			return tw.Flush()
		},
	}
}

func (a *app) requestCodeCommand() *cobra.Command {
	var mobile string
	cmd := &cobra.Command{
		Use:   "request-code",
		Short: "Show the one-time code for a registered mobile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authenticator, err := a.authenticator(cmd.Context())
			if err != nil {
				return err
			}
			code, err := authenticator.RequestCode(mobile)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Your OTP is: %s\n", code)
			return nil
		},
	}
	cmd.Flags().StringVar(&mobile, "mobile", "", "registered mobile number")
	cmd.MarkFlagRequired("mobile")
	return cmd
}

func (a *app) captureCommand() *cobra.Command {
	var capturedAt int64
	cmd := &cobra.Command{
		Use:   "capture <file>",
		Short: "Store an image as a pending photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			teacher, err := a.login(ctx)
			if err != nil {
				return err
			}
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}

			src, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			if capturedAt == 0 {
				capturedAt = time.Now().UnixMilli()
			}
			photo, err := capture.NewService(repo, a.cfg.Photos.Dir).Save(ctx, teacher, src, capturedAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Saved photo %d at %s\n", photo.ID, photo.FilePath)
			return nil
		},
	}
	cmd.Flags().Int64Var(&capturedAt, "captured-at", 0, "capture time in epoch milliseconds (default now)")
	return cmd
}

func (a *app) listCommand() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your photos for your current class",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			teacher, err := a.login(ctx)
			if err != nil {
				return err
			}
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}

			photos, err := repo.ListByOwnerAndOrg(ctx, teacher.ID, teacher.Org(), pending)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCAPTURED\tUPLOADED\tFILE")
			for _, p := range photos {
				fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n", p.ID, p.CapturedTime().Format(time.RFC3339), p.Uploaded, p.FilePath)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only photos not yet uploaded")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete photo records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			teacher, err := a.login(ctx)
			if err != nil {
				return err
			}
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}

			photos, err := repo.FindByIDs(ctx, teacher.ID, ids)
			if err != nil {
				return err
			}
			owned := make([]int64, 0, len(photos))
			for _, p := range photos {
				owned = append(owned, p.ID)
			}
			if err := repo.DeleteBatch(ctx, owned); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %d photos\n", len(owned))
			return nil
		},
	}
}

func (a *app) uploadCommand() *cobra.Command {
	var allPending bool
	cmd := &cobra.Command{
		Use:   "upload [id...]",
		Short: "Upload selected photos to S3",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			teacher, err := a.login(ctx)
			if err != nil {
				return err
			}
			repo, err := a.repository(ctx)
			if err != nil {
				return err
			}

			if allPending {
				photos, err := repo.ListByOwnerAndOrg(ctx, teacher.ID, teacher.Org(), true)
				if err != nil {
					return err
				}
				for _, p := range photos {
					ids = append(ids, p.ID)
				}
			}

			uploader, err := a.newUploader(a.cfg)
			if err != nil {
				return err
			}

			result, err := sync.NewService(repo, uploader).UploadSelected(ctx, teacher.ID, ids)
			if result != nil {
				for _, o := range result.Outcomes {
					if o.OK() {
						fmt.Fprintf(a.out, "  #%d -> %s\n", o.PhotoID, o.Location.Key)
					} else {
						fmt.Fprintf(a.out, "  #%d failed: %v\n", o.PhotoID, o.Err)
					}
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, sync.UploadMessage(result.Succeeded, result.Attempted))
			return nil
		},
	}
	cmd.Flags().BoolVar(&allPending, "all-pending", false, "also select every pending photo of your current class")
	return cmd
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid photo id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
