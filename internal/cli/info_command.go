package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"oggopus.click/internal/engine"
	"oggopus.click/internal/oggopus"
)

// fileInfo is the info command's report for one file.
type fileInfo struct {
	Path        string                `json:"path" yaml:"path"`
	MIME        string                `json:"mime,omitempty" yaml:"mime,omitempty"`
	Description *oggopus.Description  `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        map[string][][]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Error       string                `json:"error,omitempty" yaml:"error,omitempty"`
}

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info FILE...",
		Short: "Show stream, link and tag information",
		Long: `Show the links of each file with their headers, durations, bitrates,
comments and picture counts. Use --tag to print selected tag values per link.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runInfoCommand,
	}

	cmd.Flags().StringP("output", "O", outputText, "Output format (text, json, yaml)")
	cmd.Flags().StringArrayP("tag", "t", nil, "Tag to look up in every link (repeatable)")
	cmd.Flags().Int("jobs", 4, "Files inspected in parallel")
	return cmd
}

func runInfoCommand(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	tagKeys, _ := cmd.Flags().GetStringArray("tag")
	jobs, _ := cmd.Flags().GetInt("jobs")
	if err := validateOutput(output); err != nil {
		return err
	}

	eng, err := cli.Engine()
	if err != nil {
		return err
	}
	requireOgg := cli.requireOgg(eng)

	results := make([]fileInfo, len(args))
	var g errgroup.Group
	g.SetLimit(max(1, jobs))
	for i, path := range args {
		g.Go(func() error {
			results[i] = inspect(cli.files.ReadOnly(), eng, path, requireOgg, tagKeys)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}

	var v any = results
	if len(results) == 1 {
		v = results[0]
	}
	err = render(cmd.OutOrStdout(), output, v, func(st styles) error {
		for i, r := range results {
			if i > 0 {
				fmt.Fprintln(cmd.OutOrStdout())
			}
			printInfo(cmd.OutOrStdout(), st, r, tagKeys)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be read", failed, len(results))
	}
	return nil
}

func inspect(fsys afero.Fs, eng engine.Engine, path string, requireOgg bool, tagKeys []string) fileInfo {
	info := fileInfo{Path: path}
	src, err := oggopus.OpenFile(eng, fsys, path, requireOgg)
	if err != nil {
		slog.Warn("failed to open file", "path", path, "error", err)
		info.Error = err.Error()
		return info
	}
	defer src.Close()
	info.MIME = src.MIME

	if info.Description, err = src.Describe(); err != nil {
		info.Error = err.Error()
		return info
	}

	if len(tagKeys) > 0 {
		info.Tags = make(map[string][][]string, len(tagKeys))
		for li := range info.Description.Links {
			for _, key := range tagKeys {
				values, err := tagValues(src.File, li, key)
				if err != nil {
					info.Error = err.Error()
					return info
				}
				info.Tags[key] = append(info.Tags[key], values)
			}
		}
	}
	slog.Debug("inspected file", "path", path, "links", len(info.Description.Links))
	return info
}

// tagValues returns every value of key in link li, in header order.
func tagValues(f *oggopus.File, li int, key string) ([]string, error) {
	tags, err := f.Tags(li)
	if err != nil {
		return nil, err
	}
	n, err := tags.QueryCount(key)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, ok, err := tags.Query(key, i)
		if err != nil {
			return nil, err
		}
		if ok {
			values = append(values, v)
		}
	}
	return values, nil
}

func printInfo(w io.Writer, st styles, r fileInfo, tagKeys []string) {
	fmt.Fprintln(w, st.title.Render(r.Path))
	if r.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", st.bad.Render("error:"), r.Error)
		return
	}

	d := r.Description
	fmt.Fprintf(w, "  %s %s  %s %s  %s %s  %s %d\n",
		st.label.Render("type:"), r.MIME,
		st.label.Render("engine:"), d.Engine,
		st.label.Render("seekable:"), yesNo(d.Seekable),
		st.label.Render("links:"), len(d.Links))
	if d.Seekable {
		fmt.Fprintf(w, "  %s %s  %s %d  %s %s\n",
			st.label.Render("duration:"), d.Duration,
			st.label.Render("samples:"), d.PcmTotal,
			st.label.Render("bitrate:"), formatBitrate(d.Bitrate))
	}

	for li, l := range d.Links {
		fmt.Fprintf(w, "  %s serial %d, %d ch, input %d Hz, pre-skip %d, gain %+.2f dB\n",
			st.label.Render(fmt.Sprintf("link %d:", l.Index)),
			l.Serialno, l.Channels, l.InputSampleRate, l.PreSkip, float64(l.OutputGainQ8)/256)
		if d.Seekable {
			fmt.Fprintf(w, "    %s %s (%d samples), %s\n", st.dim.Render("length"), l.Duration, l.PcmTotal, formatBitrate(l.Bitrate))
		}
		fmt.Fprintf(w, "    %s %s\n", st.dim.Render("vendor"), l.Vendor)
		for _, c := range l.Comments {
			if strings.HasPrefix(strings.ToUpper(c), "METADATA_BLOCK_PICTURE=") {
				continue
			}
			fmt.Fprintf(w, "    %s\n", c)
		}
		if l.Pictures > 0 {
			fmt.Fprintf(w, "    %s %d\n", st.dim.Render("pictures"), l.Pictures)
		}
		for _, key := range tagKeys {
			var values []string
			if li < len(r.Tags[key]) {
				values = r.Tags[key][li]
			}
			fmt.Fprintf(w, "    %s %s\n", st.label.Render(key+":"), strings.Join(values, "; "))
		}
	}
}

func formatBitrate(bps int32) string {
	if bps <= 0 {
		return "unknown bitrate"
	}
	return fmt.Sprintf("%.1f kbit/s", float64(bps)/1000)
}
