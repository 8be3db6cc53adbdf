package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiograb/internal/app"
	"github.com/radiograb/internal/config"
	"github.com/radiograb/internal/export"
	"github.com/radiograb/internal/feedimport"
	"github.com/radiograb/internal/models"
	"github.com/radiograb/internal/pipeline"
	"github.com/radiograb/internal/storage"
	"github.com/radiograb/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	radio   *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radiograb",
		Short: "Manage recorded radio shows",
		Long: `Create and edit radio show recording jobs. Free-text schedules are
translated to cron, checked for name clashes, saved, and pushed to the
retention manager and recording scheduler.`,
		PersistentPreRunE:  initializeApp,
		PersistentPostRunE: closeApp,
		SilenceUsage:       true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(showsCmd())
	rootCmd.AddCommand(stationsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// The CLI has no recorder of its own; an inprocess scheduler belongs to the daemon
	if cfg.Propagation.Scheduler.Mode == config.ModeInProcess {
		log.Warn().Msg("Scheduler mode inprocess is only served by radiograb-scheduler; skipping reschedule from the CLI")
		cfg.Propagation.Scheduler.Mode = config.ModeNone
	}

	radio, err = app.New(cfg, log, app.Options{})
	return err
}

func closeApp(cmd *cobra.Command, args []string) error {
	if radio == nil {
		return nil
	}
	return radio.Close()
}

// ============ SHOW COMMANDS ============

func showsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shows",
		Short: "Create, edit and list shows",
	}

	cmd.AddCommand(showsCreateCmd())
	cmd.AddCommand(showsEditCmd())
	cmd.AddCommand(showsGetCmd())
	cmd.AddCommand(showsListCmd())
	cmd.AddCommand(showsImportFeedCmd())
	cmd.AddCommand(showsExportCmd())
	return cmd
}

// showFlags maps command-line flags onto submission fields
type showFlags struct {
	name        string
	stationID   uint
	schedule    string
	duration    int
	retention   int
	ttlType     string
	contentType string
	description string
	host        string
	genre       string
	imageURL    string
	active      bool
	streamOnly  bool
	syndicated  bool
}

func (f *showFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "Show name")
	fl.UintVar(&f.stationID, "station", 0, "Station ID")
	fl.StringVar(&f.schedule, "schedule", "", `Schedule in plain words, e.g. "weekdays at 8 AM"`)
	fl.IntVar(&f.duration, "duration", models.DefaultDurationMinutes, "Recording length in minutes (1-1440)")
	fl.IntVar(&f.retention, "retention", models.DefaultRetentionDays, "Days to keep recordings (1-3650)")
	fl.StringVar(&f.ttlType, "ttl-type", string(models.TTLTypeDays), "Retention unit (days, weeks, months, indefinite)")
	fl.StringVar(&f.contentType, "content-type", string(models.ContentTypeUnknown), "Content type (music, talk, mixed, unknown)")
	fl.StringVar(&f.description, "description", "", "Show description")
	fl.StringVar(&f.host, "host", "", "Host name")
	fl.StringVar(&f.genre, "genre", "", "Genre")
	fl.StringVar(&f.imageURL, "image-url", "", "Absolute URL of the show's artwork")
	fl.BoolVar(&f.active, "active", true, "Record this show")
	fl.BoolVar(&f.streamOnly, "stream-only", false, "Stream only; do not download")
	fl.BoolVar(&f.syndicated, "syndicated", false, "Show is syndicated")
}

// apply writes every flag the user set onto form. With all, defaults are written too.
func (f *showFlags) apply(cmd *cobra.Command, form url.Values, all bool) url.Values {
	changed := func(name string) bool { return all || cmd.Flags().Changed(name) }
	setText := func(flag, field, value string) {
		if changed(flag) {
			form.Set(field, value)
		}
	}
	setBool := func(flag, field string, value bool) {
		if !changed(flag) {
			return
		}
		if value {
			form.Set(field, "1")
		} else {
			form.Del(field)
		}
	}

	setText("name", pipeline.FieldName, f.name)
	setText("station", pipeline.FieldStationID, strconv.FormatUint(uint64(f.stationID), 10))
	setText("schedule", pipeline.FieldScheduleText, f.schedule)
	setText("duration", pipeline.FieldDurationMinutes, strconv.Itoa(f.duration))
	setText("retention", pipeline.FieldRetentionDays, strconv.Itoa(f.retention))
	setText("ttl-type", pipeline.FieldTTLType, f.ttlType)
	setText("content-type", pipeline.FieldContentType, f.contentType)
	setText("description", pipeline.FieldDescription, f.description)
	setText("host", pipeline.FieldHost, f.host)
	setText("genre", pipeline.FieldGenre, f.genre)
	setText("image-url", pipeline.FieldImageURL, f.imageURL)
	setBool("active", pipeline.FieldActive, f.active)
	setBool("stream-only", pipeline.FieldStreamOnly, f.streamOnly)
	setBool("syndicated", pipeline.FieldIsSyndicated, f.syndicated)
	return form
}

func showsCreateCmd() *cobra.Command {
	var flags showFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a show",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			res := radio.Pipeline.Create(ctx, flags.apply(cmd, url.Values{}, true))
			return printResult(res, "Created")
		},
	}

	flags.register(cmd)
	return cmd
}

func showsEditCmd() *cobra.Command {
	var flags showFlags

	cmd := &cobra.Command{
		Use:   "edit [show-id]",
		Short: "Edit a show; unset flags keep their current values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			show, err := radio.Repo.GetShowByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load show %d: %w", id, err)
			}

			res := radio.Pipeline.Edit(ctx, id, flags.apply(cmd, pipeline.Form(show), false))
			return printResult(res, "Updated")
		},
	}

	flags.register(cmd)
	return cmd
}

func showsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [show-id]",
		Short: "Show one show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			show, err := radio.Repo.GetShowByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load show %d: %w", id, err)
			}

			printShow(show)
			fmt.Printf("    Retention: %s\n", retention(show))
			fmt.Printf("    Content: %s | Stream only: %t | Syndicated: %t | Auto imported: %t\n",
				show.ContentType, show.StreamOnly, show.IsSyndicated, show.AutoImported)
			if host := models.StringValue(show.Host); host != "" {
				fmt.Printf("    Host: %s\n", host)
			}
			if genre := models.StringValue(show.Genre); genre != "" {
				fmt.Printf("    Genre: %s\n", genre)
			}
			if desc := models.StringValue(show.Description); desc != "" {
				fmt.Printf("    Description: %s\n", truncateStr(desc, 120))
			}
			fmt.Printf("    Updated: %s\n", show.UpdatedAt.Format(time.RFC1123))
			return nil
		},
	}
}

func showsListCmd() *cobra.Command {
	var stationID uint
	var activeOnly bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.DefaultShowFilter()
			filter.Limit = limit
			if stationID != 0 {
				filter.StationID = &stationID
			}
			if activeOnly {
				active := true
				filter.Active = &active
			}

			shows, err := radio.Repo.ListShows(ctx, filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Shows (%d) ===\n\n", len(shows))
			for _, s := range shows {
				printShow(s)
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&stationID, "station", 0, "Only shows of this station")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active shows")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum shows to list")

	return cmd
}

func showsImportFeedCmd() *cobra.Command {
	var flags showFlags

	cmd := &cobra.Command{
		Use:   "import-feed [feed-url]",
		Short: "Create a show prefilled from a podcast or station feed",
		Long: `Fetches the feed, takes the show's name, description, host, genre and
artwork from it, and creates the show. Flags override what the feed says;
--station and --schedule are required because feeds do not carry them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			prefill, err := feedimport.New(radio.Limiter, log).Fetch(ctx, args[0])
			if err != nil {
				return err
			}

			overrides := flags.apply(cmd, url.Values{}, false)
			if !cmd.Flags().Changed("active") {
				overrides.Set(pipeline.FieldActive, "1")
			}
			res := radio.Pipeline.Create(ctx, feedimport.Merge(prefill, overrides))
			return printResult(res, "Imported")
		},
	}

	flags.register(cmd)
	cmd.MarkFlagRequired("station")
	cmd.MarkFlagRequired("schedule")
	return cmd
}

func showsExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Publish the show catalog to Google Sheets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			exporter, err := export.NewSheetsExporter(ctx, cfg.Export, log)
			if err != nil {
				return err
			}

			filter := storage.DefaultShowFilter()
			filter.Limit = 0
			shows, err := radio.Repo.ListShows(ctx, filter)
			if err != nil {
				return err
			}

			if err := exporter.Export(ctx, shows); err != nil {
				return err
			}
			fmt.Printf("Exported %d shows to spreadsheet %s\n", len(shows), cfg.Export.SpreadsheetID)
			return nil
		},
	}
}

// ============ STATION COMMANDS ============

func stationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Manage the station catalog",
	}

	cmd.AddCommand(stationsAddCmd())
	cmd.AddCommand(stationsListCmd())
	return cmd
}

func stationsAddCmd() *cobra.Command {
	var station models.Station

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a station",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if station.Name == "" {
				return fmt.Errorf("--name is required")
			}
			if err := radio.Repo.CreateStation(ctx, &station); err != nil {
				return err
			}
			fmt.Printf("Added station [%d] %s\n", station.ID, station.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&station.Name, "name", "", "Station name")
	cmd.Flags().StringVar(&station.CallLetters, "call-letters", "", "Call letters, e.g. WNYC")
	cmd.Flags().StringVar(&station.WebsiteURL, "website", "", "Website URL")
	cmd.Flags().StringVar(&station.StreamURL, "stream-url", "", "Live stream URL")

	return cmd
}

func stationsListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			stations, err := radio.Repo.ListStations(ctx, storage.StationFilter{ActiveOnly: activeOnly})
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Stations (%d) ===\n\n", len(stations))
			for _, s := range stations {
				fmt.Printf("[%d] %s (%s) | %s\n", s.ID, s.Name, s.CallLetters, s.Status)
				if s.StreamURL != "" {
					fmt.Printf("    Stream: %s\n", s.StreamURL)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only active stations")
	return cmd
}

// ============ HELPERS ============

func printResult(res *pipeline.Result, verb string) error {
	if !res.Success {
		fmt.Println("Submission rejected:")
		for _, e := range res.Errors {
			fmt.Printf("  - %s\n", e)
		}
		return fmt.Errorf("%s failed", res.Failure.Kind())
	}

	fmt.Printf("%s show [%d] %s\n", verb, res.ID, res.Show.Name)
	fmt.Printf("    Schedule: %s (%s)\n", res.Show.ScheduleDescription, res.Show.ScheduleCron)
	for _, pe := range res.Propagation {
		fmt.Printf("    Warning: %s was not updated: %v\n", pe.Collaborator, pe.Err)
	}
	return nil
}

func printShow(s *models.Show) {
	station := "N/A"
	if s.Station != nil {
		station = s.Station.Name
	}
	status := "active"
	if !s.Active {
		status = "inactive"
	}
	fmt.Printf("[%d] %s | %s | %s\n", s.ID, s.Name, station, status)
	fmt.Printf("    Schedule: %s (%s) for %d minutes\n", s.ScheduleDescription, s.ScheduleCron, s.DurationMinutes)
}

func retention(s *models.Show) string {
	if s.RetainsForever() {
		return "forever"
	}
	return fmt.Sprintf("%d days (%s)", s.RetentionDays, s.DefaultTTLType)
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid show id %q", s)
	}
	return uint(id), nil
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
