package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"oggopus.click/internal/oggopus"
)

func newPicturesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pictures FILE",
		Short: "List or extract embedded cover art",
		Long: `List the METADATA_BLOCK_PICTURE comments of every link, or write them
to --dir as NAME-LINK-N.EXT.`,
		Args: cobra.ExactArgs(1),
		RunE: runPicturesCommand,
	}

	cmd.Flags().StringP("dir", "d", "", "Directory to extract pictures into")
	return cmd
}

func runPicturesCommand(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}
	input := args[0]
	dir, _ := cmd.Flags().GetString("dir")

	eng, err := cli.Engine()
	if err != nil {
		return err
	}
	src, err := oggopus.OpenFile(eng, cli.files.ReadOnly(), input, cli.requireOgg(eng))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer src.Close()

	links, err := src.LinkCount()
	if err != nil {
		return err
	}

	var target afero.Fs
	if dir != "" {
		if err := cli.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		target = cli.files.Dir(dir)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	out := cmd.OutOrStdout()
	st := newStyles(out)

	total := 0
	for li := 0; li < links; li++ {
		tags, err := src.Tags(li)
		if err != nil {
			return err
		}
		pics, err := tags.Pictures()
		if err != nil {
			return fmt.Errorf("failed to read pictures of link %d: %w", li, err)
		}

		for n, p := range pics {
			total++
			if dir == "" {
				fmt.Fprintf(out, "%s type %d, %s, %dx%d, %d bytes %s\n",
					st.label.Render(fmt.Sprintf("link %d #%d:", li, n)),
					p.Type, p.MIMEType, p.Width, p.Height, len(p.Data), st.dim.Render(p.Description))
				continue
			}

			name := fmt.Sprintf("%s-%d-%d%s", base, li, n, p.Extension())
			if err := afero.WriteFile(target, name, p.Data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
			slog.Debug("picture extracted", "dir", dir, "name", name, "bytes", len(p.Data))
			fmt.Fprintln(out, filepath.Join(dir, name))
		}
	}

	if total == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no pictures found")
	}
	return nil
}
