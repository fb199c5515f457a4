// ABOUTME: Entry point for the PromptJam player
// ABOUTME: Parses flags, finds a jam server, and runs the TUI or headless player
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptjam/promptjam-go/internal/audio"
	"github.com/promptjam/promptjam-go/internal/discovery"
	"github.com/promptjam/promptjam-go/internal/engine"
	"github.com/promptjam/promptjam-go/internal/player"
	"github.com/promptjam/promptjam-go/internal/prompts"
	"github.com/promptjam/promptjam-go/internal/session"
	"github.com/promptjam/promptjam-go/internal/ui"
	"github.com/promptjam/promptjam-go/internal/version"
)

var (
	configFile string

	rootCmd = &cobra.Command{
		Use:     "promptjam",
		Short:   "Steer a generative music jam from your terminal",
		Version: version.Version,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.Flags().String("server", "", "jam server address (skips mDNS discovery)")
	rootCmd.Flags().String("name", "", "client name announced to the server")
	rootCmd.Flags().StringArray("prompt", nil, "initial prompt (repeatable)")
	rootCmd.Flags().Bool("no-tui", false, "disable the TUI and stream logs instead")
	rootCmd.Flags().String("log-file", "promptjam.log", "log file path")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	_ = viper.BindPFlag("server", rootCmd.Flags().Lookup("server"))
	_ = viper.BindPFlag("name", rootCmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("prompts", rootCmd.Flags().Lookup("prompt"))
	_ = viper.BindPFlag("no-tui", rootCmd.Flags().Lookup("no-tui"))
	_ = viper.BindPFlag("log-file", rootCmd.Flags().Lookup("log-file"))
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("promptjam")
		viper.AddConfigPath("$HOME/.config/promptjam")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("PROMPTJAM")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("could not read config", "err", err)
		}
	}
}

func run(cmd *cobra.Command, args []string) error {
	useTUI := !viper.GetBool("no-tui")

	f, err := os.OpenFile(viper.GetString("log-file"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer f.Close()

	if useTUI {
		// the TUI owns the terminal, so logs go only to the file
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	clientName := viper.GetString("name")
	if clientName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = ""
		}
		clientName = session.DefaultClientName(hostname)
	}

	serverAddr := viper.GetString("server")
	if serverAddr == "" {
		log.Info("no server given, browsing the local network")
		info, err := discovery.First(5 * time.Second)
		if err != nil {
			return fmt.Errorf("no jam server found: %w", err)
		}
		serverAddr = info.Addr()
	}
	log.Info("using jam server", "addr", serverAddr, "client", clientName)

	format := audio.DefaultFormat
	clientID := uuid.New().String()
	dial := func(ctx context.Context) (session.Handle, error) {
		return session.Dial(ctx, session.TransportConfig{
			ServerAddr: serverAddr,
			ClientID:   clientID,
			Name:       clientName,
			SampleRate: format.SampleRate,
			Channels:   format.Channels,
		})
	}

	promptTexts := viper.GetStringSlice("prompts")
	if len(promptTexts) == 0 {
		promptTexts = []string{"warm analog pads", "dusty drum breaks"}
	}
	initial := make(prompts.Map, len(promptTexts))
	for i, text := range promptTexts {
		initial[fmt.Sprintf("prompt-%d", i)] = prompts.Prompt{Text: text, Weight: 1.0}
	}

	forwarder := &ui.Forwarder{}
	var cb player.Callbacks
	if useTUI {
		cb = forwarder.Callbacks()
	}

	p, err := player.New(format, dial, cb)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer p.Close()

	device, err := engine.OpenDevice(p.Engine())
	if err != nil {
		return fmt.Errorf("failed to open audio device: %w", err)
	}
	defer device.Close()

	p.SetWeightedPrompts(initial)

	if !useTUI {
		return runHeadless(p)
	}

	prog := ui.Run(p, promptTexts)
	forwarder.Attach(prog)

	statsDone := make(chan struct{})
	defer close(statsDone)
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-statsDone:
				return
			case <-ticker.C:
				prog.Send(ui.StatsMsg(p.Stats()))
			}
		}
	}()

	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("tui failed: %w", err)
	}
	return nil
}

// runHeadless plays until interrupted
func runHeadless(p *player.Player) error {
	p.Play()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	p.Stop()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
