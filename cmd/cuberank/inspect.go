package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-cuberank/internal/domain"
	"github.com/ahrav/go-cuberank/internal/ports"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <competitor-id>",
		Short: "Load the export and print one competitor's profile and records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ds, err := loadDataset(ctx, opts.cfg, opts.logger, ports.NopMetrics{})
			if err != nil {
				return err
			}

			profile, err := ds.queries.GetCompetitor(ctx, args[0])
			if err != nil {
				return err
			}
			recs, err := ds.queries.CompetitorRecords(ctx, args[0])
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), profile.Competitor, profile.CompetitionCount, recs, ds.store, ds.calc)
		},
	}
}

func printRecords(
	w io.Writer,
	c domain.Competitor,
	competitions int,
	recs []domain.EventRecords,
	events ports.ResultStore,
	records ports.RecordCalculator,
) error {
	gender := string(c.Gender)
	if gender == "" {
		gender = "-"
	}
	fmt.Fprintf(w, "%s  %s (%s, %s)  competitions: %d\n\n", c.ID, c.Name, c.Country, gender, competitions)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EVENT\tSINGLE\tAVERAGE")
	for _, rec := range recs {
		event, ok := events.EventByID(rec.EventID)
		if !ok {
			event = domain.Event{ID: rec.EventID, Name: rec.EventID, Format: records.FormatFor(rec.EventID)}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", event.Name,
			display(event, domain.KindSingle, rec.Single),
			display(event, domain.KindAverage, rec.Average))
	}
	return tw.Flush()
}

func display(e domain.Event, kind domain.RecordKind, rec *domain.Record) string {
	if rec == nil {
		return "-"
	}
	return e.FormatValue(kind, rec.Value)
}
