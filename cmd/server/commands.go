package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/cartelera/internal/model"
	"github.com/iliyamo/cartelera/internal/service"
	"github.com/iliyamo/cartelera/internal/utils"
)

func newRefreshCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh and enrich every venue once, then print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cc.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireCatalog(); err != nil {
				return err
			}

			report, err := a.svc.RefreshAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), refreshTable(report))
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s  cache: %s\n", report.Status, report.Count)
			if report.Status == service.RefreshFailed {
				return errors.New("every venue failed to refresh")
			}
			return nil
		},
	}
}

func refreshTable(r service.RefreshReport) string {
	rows := make([][]string, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		rows = append(rows, []string{o.VenueID, strconv.Itoa(o.Shows), strconv.Itoa(o.Enriched), o.Error})
	}
	return renderTable([]string{"Venue", "Shows", "Enriched", "Error"}, rows, 1, 2)
}

func newScrapeCommand(cc *commandContext) *cobra.Command {
	var enrich bool
	cmd := &cobra.Command{
		Use:   "scrape <venue-id>",
		Short: "Scrape one venue and print its shows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cc.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if !enrich {
				l, err := a.svc.GetShows(ctx, args[0])
				if err != nil {
					return service.ErrorPayloadFrom(err)
				}
				fmt.Fprintln(out, showsTable(l.Shows))
				return nil
			}
			if err := a.requireCatalog(); err != nil {
				return err
			}
			l, err := a.svc.GetEnrichedShows(ctx, args[0])
			if err != nil {
				return service.ErrorPayloadFrom(err)
			}
			fmt.Fprintln(out, enrichedTable(l.Shows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Reconcile shows against the movie catalog")
	return cmd
}

func showsTable(shows []model.Show) string {
	rows := make([][]string, 0, len(shows))
	for _, s := range shows {
		rows = append(rows, []string{s.ID, s.Name, s.DurationReadable, strconv.Itoa(len(s.Sessions)), sessionsSummary(s.Sessions)})
	}
	return renderTable([]string{"ID", "Name", "Duration", "Sessions", "Times"}, rows, 3)
}

func enrichedTable(shows []model.EnrichedShow) string {
	rows := make([][]string, 0, len(shows))
	for _, s := range shows {
		tmdbID, year := "-", ""
		if s.Enriched() {
			tmdbID = strconv.FormatInt(s.TheMovieDbID, 10)
			year = strconv.Itoa(s.Year)
		}
		rows = append(rows, []string{s.ID, s.Name, s.Title, year, tmdbID, strconv.Itoa(len(s.Sessions))})
	}
	return renderTable([]string{"ID", "Name", "Catalog title", "Year", "TMDB", "Sessions"}, rows, 4, 5)
}

func sessionsSummary(sessions []model.Session) string {
	times := make([]string, 0, len(sessions))
	for _, s := range sessions {
		times = append(times, s.Time)
	}
	return strings.Join(times, " ")
}

func newVenuesCommand(cc *commandContext) *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "venues",
		Short: "List known venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cc.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			venues, err := a.svc.ListVenues(ctx, location)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), venuesTable(venues))
			return nil
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "Comma-separated locations to filter by")
	return cmd
}

func venuesTable(venues []model.Venue) string {
	rows := make([][]string, 0, len(venues))
	for _, v := range venues {
		rows = append(rows, []string{v.ID, v.Name, v.Location, v.Family})
	}
	return renderTable([]string{"ID", "Name", "Location", "Family"}, rows)
}

func newTokenCommand(cc *commandContext) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an ADMIN token for POST /v1/cache/refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cc.cfg.JWTSecret == "" {
				return errors.New("missing required env var: JWT_SECRET")
			}
			tok, err := utils.NewAccessToken(cc.cfg.JWTSecret, subject, utils.RoleAdmin, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", tok.Exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "Who the token is issued to")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
