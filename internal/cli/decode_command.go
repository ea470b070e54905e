package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"oggopus.click/internal/config"
	"oggopus.click/internal/export"
	"oggopus.click/internal/oggopus"
)

func newDecodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Decode to WAV, AIFF or raw PCM",
		Long: `Decode every link of FILE to 16-bit PCM.

The format follows the output extension unless --format is given. With
"-o -" the audio goes to stdout, which must not be a terminal. Chained
files whose channel count changes need --stereo.`,
		Args: cobra.ExactArgs(1),
		RunE: runDecodeCommand,
	}

	cmd.Flags().StringP("output", "o", "-", "Output file, or - for stdout")
	cmd.Flags().StringP("format", "f", "", "Output format (wav, aiff, raw)")
	cmd.Flags().Bool("stereo", false, "Downmix every link to stereo")
	cmd.Flags().String("gain-type", "", "Gain reference (header, track, absolute)")
	cmd.Flags().Int("gain-offset", 0, "Gain offset in 1/256 dB")
	cmd.Flags().Bool("dither", true, "Dither when converting to 16 bit")
	cmd.Flags().Int64("start", 0, "Sample position to start decoding at")
	cmd.Flags().Int("rate", 0, "Resample the output to this rate")
	cmd.Flags().Int("chunk", 0, "Samples requested per read")
	return cmd
}

// decodeOptions combines the configured defaults with flags the user set.
func decodeOptions(cmd *cobra.Command, cfg *config.DecodeConfig) (export.Options, string, error) {
	opts := export.DefaultOptions()
	gainType, format := "", ""
	if cfg != nil {
		gainType = cfg.GainType
		format = cfg.OutputFormat
		opts.GainOffsetQ8 = int32(cfg.GainOffsetQ8)
		opts.Dither = cfg.Dither
		opts.Stereo = cfg.Stereo
		opts.SampleRate = cfg.SampleRate
		if cfg.ChunkSamples > 0 {
			opts.ChunkSamples = cfg.ChunkSamples
		}
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		format, _ = flags.GetString("format")
	}
	if flags.Changed("gain-type") {
		gainType, _ = flags.GetString("gain-type")
	}
	if flags.Changed("gain-offset") {
		q8, _ := flags.GetInt("gain-offset")
		if q8 < -32768 || q8 > 32767 {
			return opts, "", fmt.Errorf("gain offset %d is outside the 16-bit range", q8)
		}
		opts.GainOffsetQ8 = int32(q8)
	}
	if flags.Changed("dither") {
		opts.Dither, _ = flags.GetBool("dither")
	}
	if flags.Changed("stereo") {
		opts.Stereo, _ = flags.GetBool("stereo")
	}
	if flags.Changed("rate") {
		opts.SampleRate, _ = flags.GetInt("rate")
	}
	if flags.Changed("chunk") {
		opts.ChunkSamples, _ = flags.GetInt("chunk")
	}
	opts.Start, _ = flags.GetInt64("start")

	kind, err := oggopus.ParseGainKind(gainType)
	if err != nil {
		return opts, "", err
	}
	opts.GainKind = kind

	if opts.SampleRate < 0 {
		return opts, "", fmt.Errorf("invalid sample rate %d", opts.SampleRate)
	}
	if opts.Start < 0 {
		return opts, "", fmt.Errorf("invalid start position %d", opts.Start)
	}
	return opts, format, nil
}

func runDecodeCommand(cmd *cobra.Command, args []string) error {
	cli, err := cliFromContext(cmd.Context())
	if err != nil {
		return err
	}
	input := args[0]
	output, _ := cmd.Flags().GetString("output")

	opts, format, err := decodeOptions(cmd, cli.config.Decode)
	if err != nil {
		return err
	}
	if format == "" {
		format = export.FormatFromPath(output)
	}
	switch format {
	case export.FormatWAV, export.FormatAIFF, export.FormatRaw:
	default:
		return fmt.Errorf("%q: %w", format, export.ErrUnknownFormat)
	}

	eng, err := cli.Engine()
	if err != nil {
		return err
	}
	src, err := oggopus.OpenFile(eng, cli.files.ReadOnly(), input, cli.requireOgg(eng))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", input, err)
	}
	defer src.Close()

	var w io.Writer
	var file io.Closer
	if output == "-" {
		w = cmd.OutOrStdout()
		if cli.writesToTerminal(w) {
			return fmt.Errorf("refusing to write audio to a terminal; use -o FILE or redirect stdout")
		}
	} else {
		if err := cli.fs.MkdirAll(filepath.Dir(output), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", output, err)
		}
		f, err := cli.fs.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", output, err)
		}
		defer f.Close()
		w, file = f, f
	}

	slog.Info("decoding", "input", input, "output", output, "format", format)
	res, err := export.Decode(cmd.Context(), src.File, func(channels, rate int) (export.Sink, error) {
		return export.NewSink(format, w, channels, rate)
	}, opts)
	if err != nil {
		if file != nil {
			file.Close()
			if rmErr := cli.fs.Remove(output); rmErr != nil {
				slog.Warn("failed to remove partial output", "path", output, "error", rmErr)
			}
		}
		return fmt.Errorf("failed to decode %s: %w", input, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d frames, %d ch, %d Hz (%s)\n",
		input, res.Frames, res.Channels, res.SampleRate, format)
	return nil
}
