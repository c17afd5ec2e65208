package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Nagarajan13172/qpgen/internal/backend"
	appI18n "github.com/Nagarajan13172/qpgen/internal/i18n"
	"github.com/Nagarajan13172/qpgen/internal/model"
	"github.com/Nagarajan13172/qpgen/internal/render"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the backend and count syllabi and papers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			var (
				health          model.HealthStatus
				syllabi, papers int
			)
			g, ctx := errgroup.WithContext(e.ctx)
			g.Go(func() error {
				var err error
				health, err = e.client.Health(ctx)
				return err
			})
			g.Go(func() error {
				page, err := e.client.ListSyllabi(ctx, backend.ListOptions{Limit: 100})
				syllabi = len(page.Items)
				return err
			})
			g.Go(func() error {
				page, err := e.client.ListPapers(ctx, backend.ListOptions{Limit: 100})
				papers = len(page.Items)
				return err
			})
			if err := g.Wait(); err != nil {
				fmt.Printf("%s: %s (%s)\n", appI18n.T(e.ctx, "BackendStatus"), appI18n.T(e.ctx, "BackendUnreachable"), e.client.BaseURL())
				return err
			}

			fmt.Printf("%s: %s (%s, %s)\n", appI18n.T(e.ctx, "BackendStatus"), appI18n.T(e.ctx, "BackendHealthy"), e.client.BaseURL(), health.Status)
			fmt.Println(appI18n.Tp(e.ctx, "SyllabiCount", syllabi))
			fmt.Println(appI18n.Tp(e.ctx, "PapersCount", papers))
			return nil
		},
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show locally recorded generation requests and downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			gens, err := e.db.ListGenerations(e.v.GetInt("limit"))
			if err != nil {
				return err
			}
			downloads, err := e.db.ListDownloads()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "%s\n", appI18n.T(e.ctx, "Generations"))
			for _, g := range gens {
				fmt.Fprintf(tw, "#%d\t%s\t%d\t%s\t%s\t%s\n", g.ID, g.SyllabusID, g.TotalMarks, g.Status, g.PaperID, render.Ago(g.CreatedAt))
				if g.Error != "" {
					fmt.Fprintf(tw, "\t%s\n", g.Error)
				}
			}
			fmt.Fprintf(tw, "\n%s\n", appI18n.T(e.ctx, "Downloads"))
			for _, d := range downloads {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.PaperID, d.Path, render.Bytes(d.SizeBytes), render.Ago(d.CreatedAt))
			}
			return tw.Flush()
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.Int("limit", 20, "Number of generation requests to show (0 = all)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local history as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			export, err := e.db.ExportHistory()
			if err != nil {
				return fmt.Errorf("export history: %w", err)
			}

			data, err := json.MarshalIndent(export, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal JSON: %w", err)
			}

			outPath := e.v.GetString("output")
			var w io.Writer
			if outPath == "" || outPath == "-" {
				w = os.Stdout
			} else {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if _, err := w.Write(data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			_, _ = fmt.Fprintln(w)
			return nil
		},
	}
	f := cmd.Flags()
	addCommonFlags(f)
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}
