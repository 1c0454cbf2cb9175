package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"recordhub/internal/app"
	"recordhub/internal/config"
	"recordhub/internal/domain/filter"
	"recordhub/internal/domain/search"
	"recordhub/internal/domain/student"
	"recordhub/internal/infrastructure/search/elastic"
	"recordhub/internal/infrastructure/storage/memory"
	"recordhub/internal/infrastructure/storage/postgres"
	"recordhub/pkg/logger"
)

// filterInput is the filter given on the command line in one of its forms.
type filterInput struct {
	triple string
	query  string
}

func (in *filterInput) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&in.triple, "triple", "", `single filter as JSON, e.g. '{"field":"roll_no","operator":"range","value":{"gte":"1"}}'`)
	cmd.Flags().StringVar(&in.query, "query", "", `structured query string, e.g. 'roll_no[gte]=1&or[0][email][contains]=x'`)
}

// compile translates the input and returns the query with its paging.
func (in *filterInput) compile(tr *filter.Translator) (filter.CompositeQuery, filter.ExecuteOptions, error) {
	switch {
	case in.triple != "" && in.query != "":
		return filter.CompositeQuery{}, filter.ExecuteOptions{}, errors.New("use either --triple or --query")

	case in.triple != "":
		var item filter.Item
		if err := json.Unmarshal([]byte(in.triple), &item); err != nil {
			return filter.CompositeQuery{}, filter.ExecuteOptions{}, fmt.Errorf("parse --triple: %w", err)
		}
		q, err := tr.FromTriple(item)
		return q, filter.ExecuteOptions{}, err

	default:
		values, err := url.ParseQuery(strings.TrimPrefix(in.query, "?"))
		if err != nil {
			return filter.CompositeQuery{}, filter.ExecuteOptions{}, fmt.Errorf("parse --query: %w", err)
		}
		page, err := search.PageFromValues(values)
		if err != nil {
			return filter.CompositeQuery{}, filter.ExecuteOptions{}, err
		}
		q, err := tr.FromValues(values)
		opts := filter.ExecuteOptions{Fields: page.Fields, Limit: page.Limit, Offset: page.Offset, OrderBy: page.OrderBy}
		return q, opts, err
	}
}

func newTranslateCmd() *cobra.Command {
	var in filterInput
	var backend string

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Print the backend query a filter compiles to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if backend == "" {
				backend = cfg.Search.Backend
			}
			return translate(cmd.OutOrStdout(), cfg, backend, &in)
		},
	}
	in.bind(cmd)
	cmd.Flags().StringVar(&backend, "backend", "", "postgres, elasticsearch or memory (default from config)")
	return cmd
}

func translate(w io.Writer, cfg *config.Config, backend string, in *filterInput) error {
	schema, err := app.Schema(cfg)
	if err != nil {
		return err
	}
	q, opts, err := in.compile(app.Translator(cfg, schema))
	if err != nil {
		return err
	}
	if opts.OrderBy == "" {
		opts.OrderBy = cfg.Search.OrderBy
	}

	switch backend {
	case config.BackendPostgres:
		sql, args, err := postgres.NewQueryExecutor(nil, student.Table, schema, cfg.Search.OrderBy).SelectQuery(q, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, sql)
		for i, a := range args {
			fmt.Fprintf(w, "$%d = %#v\n", i+1, a)
		}
		return nil

	case config.BackendElasticsearch:
		body, err := elastic.NewExecutor(nil, cfg.Search.Elastic.Index, schema, cfg.Search.OrderBy).SearchBody(q, opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(body)

	case config.BackendMemory:
		expr, params := memory.Compile(q)
		fmt.Fprintln(w, expr)
		for i, p := range params {
			fmt.Fprintf(w, "p[%d] = %#v\n", i, p)
		}
		return nil

	default:
		return fmt.Errorf("unknown backend %q", backend)
	}
}

func newSearchCmd() *cobra.Command {
	var in filterInput

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a filter against the configured backend and print records as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := logger.WithLogger(cmd.Context(), logger.Nop())

			db, err := app.OpenDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			schema, err := app.Schema(cfg)
			if err != nil {
				return err
			}
			exec, err := app.NewSearchBackend(ctx, cfg, schema, db)
			if err != nil {
				return err
			}
			q, opts, err := in.compile(app.Translator(cfg, schema))
			if err != nil {
				return err
			}
			if opts.OrderBy == "" {
				opts.OrderBy = cfg.Search.OrderBy
			}
			if opts.Limit <= 0 {
				opts.Limit = cfg.Search.DefaultLimit
			}

			records, err := exec.Execute(ctx, q, opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(records)
		},
	}
	in.bind(cmd)
	return cmd
}
