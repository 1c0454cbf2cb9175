package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"recordhub/internal/app"
	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/search/elastic"
	"recordhub/internal/infrastructure/storage/postgres"
	"recordhub/pkg/logger"
)

// bulkIndexer is implemented by elastic.Indexer.
type bulkIndexer interface {
	Index(ctx context.Context, records []filter.Record) (elastic.IndexStats, error)
}

func newReindexCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Copy students from the database into the Elasticsearch index",
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
				return errors.New("reindex needs database.dsn")
			}

			schema, err := app.Schema(cfg)
			if err != nil {
				return err
			}
			es := cfg.Search.Elastic
			client, err := elastic.NewClient(elastic.Config{Addresses: es.Addresses, Username: es.Username, Password: es.Password})
			if err != nil {
				return err
			}
			ix := elastic.NewIndexer(client, es.Index, schema, "roll_no")
			if err := ix.EnsureIndex(ctx); err != nil {
				return err
			}

			source := postgres.NewQueryExecutor(db.TxM, student.Table, schema, "roll_no")
			return reindex(ctx, cmd.OutOrStdout(), source, ix, batch)
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 500, "records per page")
	return cmd
}

// reindex pages through source by roll_no and indexes every page.
func reindex(ctx context.Context, w io.Writer, source filter.Executor, ix bulkIndexer, batch int) error {
	if batch <= 0 {
		return fmt.Errorf("batch must be positive")
	}
	var total elastic.IndexStats
	for offset := 0; ; offset += batch {
		page, err := source.Execute(ctx, filter.MatchAll(), filter.ExecuteOptions{Limit: batch, Offset: offset, OrderBy: "roll_no"})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}
		st, err := ix.Index(ctx, page)
		if err != nil {
			return err
		}
		total.Indexed += st.Indexed
		total.Failed += st.Failed
		if len(page) < batch {
			break
		}
	}
	fmt.Fprintf(w, "indexed %d, failed %d\n", total.Indexed, total.Failed)
	if total.Failed > 0 {
		return fmt.Errorf("%d documents failed", total.Failed)
	}
	return nil
}
