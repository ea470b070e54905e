package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"oggopus.click/internal/catalog"
	"oggopus.click/internal/config"
)

func newCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Scan music folders into a local catalog and query it",
	}
	cmd.AddCommand(newCatalogScanCommand())
	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogScansCommand())
	return cmd
}

func newCatalogScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan DIR",
		Short: "Probe every .opus, .ogg and .oga file under DIR",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogScan,
	}
	cmd.Flags().IntP("workers", "w", 0, "Files probed in parallel (default from config)")
	return cmd
}

func runCatalogScan(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}
	cat, err := cli.openCatalog()
	if err != nil {
		return err
	}
	unlock, err := lockCatalogScan(cli.catalogPath)
	if err != nil {
		return err
	}
	defer unlock()

	eng, err := cli.Engine()
	if err != nil {
		return err
	}

	workers := 1
	if cli.config.Catalog != nil {
		workers = cli.config.Catalog.Workers
	}
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}

	scanner := &catalog.Scanner{
		Engine:     eng,
		Fs:         cli.files.ReadOnly(),
		Catalog:    cat,
		RequireOgg: cli.requireOgg(eng),
		Workers:    workers,
	}
	scan, err := scanner.Scan(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("scan of %s failed: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %d files, %d failed\n", scan.ID, scan.Files, scan.Failures)
	return nil
}

// lockCatalogScan keeps two scans from writing the same catalog at once.
func lockCatalogScan(path string) (func(), error) {
	if path == catalog.MemoryPath {
		return func() {}, nil
	}
	lock := config.NewFileLock(path + ".scan.lock")
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock catalog %s: %w", path, err)
	}
	if !acquired {
		return nil, fmt.Errorf("another scan is already writing %s", path)
	}
	return func() { _ = lock.Unlock() }, nil
}

func newCatalogListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued files",
		Long: `List catalogued files, most recently scanned first.

Time filters: --preset (today, yesterday, week, last-week, month,
last-month, all), --since with a natural date such as "3 days ago",
or --days N.`,
		Args: cobra.NoArgs,
		RunE: runCatalogList,
	}

	cmd.Flags().String("since", "", "Only files scanned since this date (natural language)")
	cmd.Flags().String("preset", "", "Date preset")
	cmd.Flags().Int("days", 0, "Only files scanned in the last N days")
	cmd.Flags().String("scan", "", "Only files from this scan id")
	cmd.Flags().String("artist", "", "Artist substring, case-insensitive")
	cmd.Flags().String("path", "", "Path substring")
	cmd.Flags().Bool("failed", false, "Only files that could not be opened")
	cmd.Flags().Int("limit", 0, "Maximum number of files (0 = all)")
	cmd.Flags().Int("offset", 0, "Files to skip")
	cmd.Flags().StringP("output", "O", outputText, "Output format (text, json, yaml)")
	return cmd
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	output, _ := flags.GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	var filter catalog.QueryFilter
	filter.DatePreset, _ = flags.GetString("preset")
	filter.Days, _ = flags.GetInt("days")
	filter.ScanID, _ = flags.GetString("scan")
	filter.Artist, _ = flags.GetString("artist")
	filter.PathContains, _ = flags.GetString("path")
	filter.OnlyFailed, _ = flags.GetBool("failed")
	filter.Limit, _ = flags.GetInt("limit")
	filter.Offset, _ = flags.GetInt("offset")

	if filter.DatePreset != "" {
		if _, _, err := catalog.ParseDatePreset(filter.DatePreset, time.Now()); err != nil {
			return err
		}
	}
	if since, _ := flags.GetString("since"); since != "" {
		start, err := catalog.ParseNaturalDate(since, time.Now())
		if err != nil {
			return err
		}
		filter.StartTime = &start
	}

	cat, err := cli.openCatalog()
	if err != nil {
		return err
	}
	files, err := cat.Files(cmd.Context(), filter)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return render(out, output, files, func(st styles) error {
		printFiles(out, st, files)
		return nil
	})
}

func printFiles(w io.Writer, st styles, files []catalog.File) {
	if len(files) == 0 {
		fmt.Fprintln(w, st.dim.Render("no files"))
		return
	}
	for _, f := range files {
		if f.Error != "" {
			fmt.Fprintf(w, "%s %s\n", st.bad.Render(f.Path), st.dim.Render(f.Error))
			continue
		}
		title := f.Title
		if f.Artist != "" {
			title = f.Artist + " - " + title
		}
		fmt.Fprintf(w, "%s  %s  %d link(s)  %s\n",
			st.title.Render(f.Path), f.Duration.Round(time.Second), f.LinkCount, title)
	}
}

func newCatalogScansCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "List recorded scans",
		Args:  cobra.NoArgs,
		RunE:  runCatalogScans,
	}
	cmd.Flags().Int("limit", 10, "Maximum number of scans (0 = all)")
	cmd.Flags().StringP("output", "O", outputText, "Output format (text, json, yaml)")
	return cmd
}

func runCatalogScans(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")
	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return err
	}

	cat, err := cli.openCatalog()
	if err != nil {
		return err
	}
	scans, err := cat.Scans(cmd.Context(), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return render(out, output, scans, func(st styles) error {
		for _, s := range scans {
			status := "running"
			if s.FinishedAt != nil {
				status = fmt.Sprintf("%d files, %d failed", s.Files, s.Failures)
			}
			fmt.Fprintf(out, "%s  %s  %s  %s\n",
				st.label.Render(s.ID), s.StartedAt.Format(time.DateTime), s.Root, st.dim.Render(status))
		}
		return nil
	})
}
