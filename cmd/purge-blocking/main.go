// Command purge-blocking deletes placeholder "not available" events from
// every room calendar.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/config"
	"roombooking-service/internal/fanout"
	"roombooking-service/internal/logging"
)

type purgeOptions struct {
	Marker string
	Window calendar.Window
	DryRun bool
	Fanout fanout.Options
}

type roomReport struct {
	Room    calendar.Room
	Matched []calendar.Event
	Deleted int
	Err     error
}

func main() {
	flags := pflag.NewFlagSet("purge-blocking", pflag.ExitOnError)
	marker := flags.String("marker", "niet beschikbaar", "delete events whose subject contains this text (case-insensitive)")
	days := flags.Int("days", 365, "search this many days before and after today")
	dryRun := flags.Bool("dry-run", false, "only list matching events")
	envFile := flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	_ = flags.Parse(os.Args[1:])

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, _, err := cfg.Gateway(ctx)
	if err != nil {
		logger.Error("failed to build calendar gateway", "error", err)
		os.Exit(1)
	}
	rooms, err := gw.ListRooms(ctx)
	if err != nil {
		logger.Error("failed to list rooms", "error", err, "error_kind", apperr.Kind(err))
		os.Exit(1)
	}

	today := time.Now().Truncate(24 * time.Hour)
	opts := purgeOptions{
		Marker: *marker,
		Window: calendar.Window{Start: today.AddDate(0, 0, -*days), End: today.AddDate(0, 0, *days)},
		DryRun: *dryRun,
		Fanout: fanout.Options{Limit: cfg.FanoutLimit, Timeout: time.Minute},
	}
	reports := purge(ctx, gw, rooms, opts, logger)
	if failed := printReport(os.Stdout, reports, opts.DryRun); failed > 0 {
		os.Exit(1)
	}
}

// purge deletes matching events room by room. Rooms are processed
// concurrently; events within a room sequentially.
func purge(ctx context.Context, gw calendar.Gateway, rooms []calendar.Room, opts purgeOptions, logger *slog.Logger) []roomReport {
	marker := strings.ToLower(strings.TrimSpace(opts.Marker))
	results := fanout.Map(ctx, rooms, opts.Fanout, func(ctx context.Context, room calendar.Room) (roomReport, error) {
		rep := roomReport{Room: room}
		if marker == "" {
			return rep, nil
		}
		events, err := gw.ListEvents(ctx, room.Address, opts.Window, []string{"id", "subject", "start", "end"})
		if err != nil {
			return rep, err
		}
		for _, ev := range events {
			if strings.Contains(strings.ToLower(ev.Subject), marker) {
				rep.Matched = append(rep.Matched, ev)
			}
		}
		if opts.DryRun {
			return rep, nil
		}
		for _, ev := range rep.Matched {
			if err := gw.DeleteEvent(ctx, room.Address, ev.ID); err != nil {
				logger.WarnContext(ctx, "failed to delete event", "room", room.Address, "event_id", ev.ID, "error", err, "error_kind", apperr.Kind(err))
				rep.Err = err
				continue
			}
			rep.Deleted++
		}
		return rep, nil
	})

	reports := make([]roomReport, len(rooms))
	for i, res := range results {
		reports[i] = res.Value
		reports[i].Room = rooms[i]
		if res.Err != nil {
			reports[i].Err = res.Err
			logger.WarnContext(ctx, "room skipped", "room", rooms[i].Address, "error", res.Err, "error_kind", apperr.Kind(res.Err))
		}
	}
	return reports
}

// printReport writes a summary and returns the number of rooms with errors.
func printReport(w io.Writer, reports []roomReport, dryRun bool) int {
	failed, total := 0, 0
	for _, rep := range reports {
		fmt.Fprintf(w, "%s (%s)\n", rep.Room.DisplayName, rep.Room.Address)
		for _, ev := range rep.Matched {
			fmt.Fprintf(w, "  %s  %s\n", ev.Start.Format("2006-01-02 15:04"), ev.Subject)
		}
		if dryRun {
			fmt.Fprintf(w, "  -> %d matching events\n", len(rep.Matched))
			total += len(rep.Matched)
		} else {
			fmt.Fprintf(w, "  -> deleted %d events\n", rep.Deleted)
			total += rep.Deleted
		}
		if rep.Err != nil {
			fmt.Fprintf(w, "  !! %v\n", rep.Err)
			failed++
		}
	}
	verb := "deleted"
	if dryRun {
		verb = "matched"
	}
	fmt.Fprintf(w, "%s %d events in %d rooms\n", verb, total, len(reports))
	return failed
}
