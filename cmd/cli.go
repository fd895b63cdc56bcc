// SPDX-License-Identifier: MIT
package cmd

import (
	"dopplerlab/internal/build"
	"dopplerlab/internal/config"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Commands that run instead of a live session.
const (
	CommandList    = "list"
	CommandAnalyze = "analyze"
)

// Invocation is the parsed command line: the resolved configuration plus
// what to do with it.
type Invocation struct {
	Config  *config.Config
	Command string // Empty for a live session.
	Args    []string
	TUIMode bool // Show the dashboard during a live session.
	Pick    bool // list: open the interactive device picker.
	Hop     int  // analyze: frames fed between analysis ticks.
}

// flagValues holds raw flag values. Only flags the user set are copied into
// the configuration, so file and environment values survive defaults.
type flagValues struct {
	configPath string

	inputDevice     int
	outputDevice    int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	inputChannels   int
	noTone          bool

	mode          string
	blockSize     int
	window        string
	backend       string
	peakWindow    int
	interval      time.Duration
	target        float64
	classifier    string
	legacyDivisor bool

	record    bool
	outputDir string
	bitDepth  int

	websocket     bool
	websocketAddr string
	udp           bool
	udpAddr       string

	debug    bool
	logLevel string
}

// ParseArgs parses args (without the program name) into an Invocation.
func ParseArgs(args []string) (*Invocation, error) {
	buildInfo := build.GetBuildFlags()
	inv := &Invocation{}
	var fv flagValues

	resolve := func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(fv.configPath)
		if err != nil {
			return err
		}
		fv.apply(cmd.Flags(), cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		inv.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   CommandList,
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&inv.Pick, "pick", "p", false,
		"Choose a device interactively and print the flags that select it")
	rootCmd.AddCommand(listCmd)

	// Analyze command
	analyzeCmd := &cobra.Command{
		Use:   CommandAnalyze + " FILE.wav",
		Short: "Run the analysis over a WAV file and print every tick",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandAnalyze
			inv.Args = args
			if inv.Hop < 1 {
				return fmt.Errorf("--hop must be positive, got %d", inv.Hop)
			}
			return nil
		},
	}
	analyzeCmd.Flags().IntVar(&inv.Hop, "hop", 4096,
		"Frames fed between analysis ticks")
	rootCmd.AddCommand(analyzeCmd)

	flags := rootCmd.PersistentFlags()

	// Configuration file
	flags.StringVarP(&fv.configPath, "config", "c", "",
		"Configuration file (default config.yaml or dopplerlab.yaml if present)")

	// Audio Device Configuration
	flags.IntVarP(&fv.inputDevice, "input-device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	flags.IntVar(&fv.outputDevice, "output-device", config.DefaultDeviceID,
		"Output device ID for the test tone")
	flags.Float64VarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&fv.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	flags.IntVar(&fv.inputChannels, "channels", config.DefaultInputChannels,
		"Number of input channels to capture; channel 0 is analyzed")
	flags.BoolVar(&fv.noTone, "no-tone", false,
		"Do not open an output stream for the test tone")

	// Analysis Configuration
	flags.StringVarP(&fv.mode, "mode", "m", config.DefaultMode,
		"Analysis mode: tones or gesture")
	flags.IntVar(&fv.blockSize, "block-size", config.DefaultBlockSize,
		"Transform size, a power of two")
	flags.StringVar(&fv.window, "window", config.DefaultFFTWindow,
		"Window function: Hann, Hamming, Blackman, BlackmanNuttall, BartlettHann, Nuttall, Lanczos or Rectangular")
	flags.StringVar(&fv.backend, "backend", config.DefaultFFTBackend,
		"FFT implementation: gonum or godsp")
	flags.IntVar(&fv.peakWindow, "peak-window", config.DefaultPeakWindow,
		"Sliding window width in bins for peak detection")
	flags.DurationVar(&fv.interval, "interval", config.DefaultAnalysisInterval,
		"Analysis period, e.g. 100ms")

	// Gesture Configuration
	flags.Float64VarP(&fv.target, "target", "t", config.DefaultTargetFrequency,
		"Test tone and analysis target frequency in Hz")
	flags.StringVar(&fv.classifier, "classifier", config.DefaultClassifier,
		"Gesture classifier: two_sided or single")
	flags.BoolVar(&fv.legacyDivisor, "legacy-divisor", false,
		"Average sidebands with the historical divisors")

	// Recording Configuration
	flags.BoolVarP(&fv.record, "record", "r", false,
		"Record audio from the input device")
	flags.StringVarP(&fv.outputDir, "output-dir", "o", config.DefaultOutputDir,
		"Directory for recordings")
	flags.IntVar(&fv.bitDepth, "bit-depth", config.DefaultBitDepth,
		"Recording bit depth: 16 or 24")

	// Transport Configuration
	flags.BoolVar(&fv.websocket, "websocket", false,
		"Serve display graphs over a websocket")
	flags.StringVar(&fv.websocketAddr, "websocket-addr", config.DefaultWebSocketAddress,
		"Websocket listen address")
	flags.BoolVar(&fv.udp, "udp", false,
		"Send display graphs over UDP")
	flags.StringVar(&fv.udpAddr, "udp-addr", config.DefaultUDPTargetAddress,
		"UDP target address")

	// Interface and Debug Configuration
	rootCmd.Flags().BoolVar(&inv.TUIMode, "tui", true,
		"Show the live dashboard; when false, log a summary every tick")
	flags.BoolVarP(&fv.debug, "debug", "v", false,
		"Show verbose output")
	flags.StringVar(&fv.logLevel, "log-level", "",
		"Logging level: debug, info, warn or error")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if inv.Config == nil {
		// Help or version was printed.
		return nil, nil
	}

	return inv, nil
}

// apply copies every flag the user set into cfg.
func (fv *flagValues) apply(flags *pflag.FlagSet, cfg *config.Config) {
	set := flags.Changed

	if set("input-device") {
		cfg.Audio.InputDevice = fv.inputDevice
	}
	if set("output-device") {
		cfg.Audio.OutputDevice = fv.outputDevice
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = fv.sampleRate
	}
	if set("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = fv.framesPerBuffer
	}
	if set("low-latency") {
		cfg.Audio.LowLatency = fv.lowLatency
	}
	if set("channels") {
		cfg.Audio.InputChannels = fv.inputChannels
	}
	if set("no-tone") && fv.noTone {
		cfg.Audio.OutputChannels = 0
	}

	if set("mode") {
		cfg.Analysis.Mode = fv.mode
	}
	if set("block-size") {
		cfg.Analysis.BlockSize = fv.blockSize
	}
	if set("window") {
		cfg.Analysis.FFTWindow = fv.window
	}
	if set("backend") {
		cfg.Analysis.FFTBackend = fv.backend
	}
	if set("peak-window") {
		cfg.Analysis.PeakWindow = fv.peakWindow
	}
	if set("interval") {
		cfg.Analysis.AnalysisInterval = fv.interval
	}

	if set("target") {
		cfg.Gesture.TargetFrequency = fv.target
	}
	if set("classifier") {
		cfg.Gesture.Classifier = fv.classifier
	}
	if set("legacy-divisor") {
		cfg.Gesture.LegacyDivisor = fv.legacyDivisor
	}

	if set("record") {
		cfg.Recording.Enabled = fv.record
	}
	if set("output-dir") {
		cfg.Recording.OutputDir = fv.outputDir
	}
	if set("bit-depth") {
		cfg.Recording.BitDepth = fv.bitDepth
	}

	if set("websocket") {
		cfg.Transport.WebSocketEnabled = fv.websocket
	}
	if set("websocket-addr") {
		cfg.Transport.WebSocketAddress = fv.websocketAddr
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = fv.udp
	}
	if set("udp-addr") {
		cfg.Transport.UDPTargetAddress = fv.udpAddr
	}

	if set("debug") {
		cfg.Debug = fv.debug
	}
	if set("log-level") {
		cfg.LogLevel = fv.logLevel
	}
}
