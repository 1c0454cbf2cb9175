package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"recordhub/internal/app"
	"recordhub/internal/core/apperror"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/http/v1/dto"
	"recordhub/internal/infrastructure/storage/postgres/student_repo"
	"recordhub/pkg/logger"
)

// creator is implemented by student.Service.
type creator interface {
	Create(ctx context.Context, in student.Input) (*student.Student, error)
}

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create students from a JSON array in the API payload shape",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := app.NewLogger(cfg, "recordctl")
			if err != nil {
				return err
			}
			ctx := logger.WithLogger(cmd.Context(), log)

			db, err := app.OpenDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			if db.TxM == nil {
				return errors.New("seed needs database.dsn")
			}

			schema, err := app.Schema(cfg)
			if err != nil {
				return err
			}
			svc := student.NewService(student_repo.New(db.TxM), db.TxM, app.Translator(cfg, schema), cfg.Search.ListFields)

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			created, skipped, err := seed(ctx, svc, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d existing\n", created, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file with student payloads")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// seed creates every student in r. Duplicates are skipped; any other error stops the run.
func seed(ctx context.Context, svc creator, r io.Reader) (created, skipped int, err error) {
	var payloads []dto.StudentRequest
	if err := json.NewDecoder(r).Decode(&payloads); err != nil {
		return 0, 0, fmt.Errorf("decode students: %w", err)
	}

	for i := range payloads {
		_, err := svc.Create(ctx, payloads[i].ToInput())
		switch {
		case err == nil:
			created++
		case apperror.IsCode(err, apperror.CodeDuplicate):
			skipped++
			logger.Info(ctx, "student exists, skipped", "email", payloads[i].Email)
		default:
			return created, skipped, fmt.Errorf("student %d (%s): %w", i, payloads[i].Email, err)
		}
	}
	return created, skipped, nil
}
