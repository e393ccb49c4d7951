package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thesyncim/svtav1"
	"github.com/thesyncim/svtav1/internal/config"
)

var (
	version = "0.1.0"
	cfgFile string
	log     = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "svtav1enc",
	Short: "AV1 encoder built on SVT-AV1",
	Long: `svtav1enc encodes Y4M files or synthetic test patterns to AV1 and
writes IVF, fragmented MP4 or raw OBU output.`,
	SilenceUsage: true,
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode an input to AV1",
	Example: `  svtav1enc encode -i clip.y4m -o clip.ivf --preset 8 -p keyint=120
  svtav1enc encode -i pattern:movingbox -n 90 -o box.mp4 --profile rt.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile, cmd.Flags())
		if err != nil {
			return err
		}
		if err := setLogLevel(cfg.LogLevel); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runEncode(ctx, cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("svtav1enc v%s\n", version)
		if svtav1.Available() {
			fmt.Printf("SvtAv1Enc %s\n", svtav1.Version())
		} else {
			fmt.Printf("SvtAv1Enc unavailable: %v\n", svtav1.LoadError())
		}
	},
}

func init() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./svtav1enc.yaml)")
	config.BindFlags(encodeCmd.Flags())

	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(versionCmd)
}

func setLogLevel(s string) error {
	lvl, err := logrus.ParseLevel(s)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
