// ABOUTME: Entry point for the jam simulator server
// ABOUTME: Runs a local websocket jam server with synthesized audio
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/promptjam/promptjam-go/internal/server"
	"github.com/promptjam/promptjam-go/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "promptjam-sim",
	Short:   "Run a local jam server for development and testing",
	Version: version.Version,
	RunE:    run,
}

func init() {
	rootCmd.Flags().Int("port", 8927, "port to listen on")
	rootCmd.Flags().String("name", "PromptJam Sim", "server name announced over mDNS")
	rootCmd.Flags().String("codec", "pcm", "preferred stream codec (pcm or opus)")
	rootCmd.Flags().Bool("no-mdns", false, "disable mDNS advertisement")

	_ = viper.BindPFlag("sim.port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("sim.name", rootCmd.Flags().Lookup("name"))
	_ = viper.BindPFlag("sim.codec", rootCmd.Flags().Lookup("codec"))
	_ = viper.BindPFlag("sim.no-mdns", rootCmd.Flags().Lookup("no-mdns"))
}

func run(cmd *cobra.Command, args []string) error {
	codec := viper.GetString("sim.codec")
	if codec != "pcm" && codec != "opus" {
		return fmt.Errorf("unsupported codec %q (pcm or opus)", codec)
	}

	srv := server.New(server.Config{
		Port:       viper.GetInt("sim.port"),
		Name:       viper.GetString("sim.name"),
		Codec:      codec,
		EnableMDNS: !viper.GetBool("sim.no-mdns"),
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("interrupt received, stopping")
		srv.Stop()
	}()

	return srv.Start()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
