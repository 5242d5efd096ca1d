// Command ledclock drives a 60-LED ring as a WiFi wall clock.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/ledclock/internal/clock"
	"github.com/sweeney/ledclock/internal/config"
	"github.com/sweeney/ledclock/internal/device"
	"github.com/sweeney/ledclock/internal/effect"
	"github.com/sweeney/ledclock/internal/gpio"
	"github.com/sweeney/ledclock/internal/render"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:          "ledclock",
		Short:        "ledclock drives a 60-LED ring as a WiFi wall clock.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cfgFile); err != nil {
				return err
			}
			return setupLogging(viper.GetString("log-level"), viper.GetBool("log-json"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configFromViper())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file; flags and LEDCLOCK_* env vars override it")
	pf.String("settings", "/var/lib/ledclock/settings.yaml", "Operator settings file")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.Bool("log-json", false, "Log JSON instead of console text")

	f := root.Flags()
	f.String("http", ":80", "HTTP panel address (empty to disable)")
	f.String("strip", "spi", "LED driver: spi | console | none")
	f.String("spi", "", "SPI port for the strip (empty for the first port)")
	f.String("i2c", "", "I2C bus of the DS3231 (empty for the first bus)")
	f.Bool("battery", true, "Sample the backup cell through an ADS1115")
	f.String("adc-bus", "", "I2C bus of the ADS1115 (empty for the first bus)")
	f.Int("adc-channel", 0, "ADS1115 input wired to the cell (0-3)")
	f.Float64("adc-divider", 1, "Voltage divider ratio in front of the ADC")
	f.Int("button", gpio.PinButton, "BCM pin of the night-light button (-1 to disable)")
	f.String("wifi", "wlan0", "Wireless interface managed through nmcli (empty to leave WiFi alone)")
	f.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	f.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	f.Duration("poll", device.DefaultPoll, "Control loop interval")
	f.Bool("mdns", true, "Advertise the panel over mDNS")

	viper.BindPFlags(pf)
	viper.BindPFlags(f)

	root.AddCommand(newPrintFrameCmd(), newResetCmd(), newVersionCmd())
	return root
}

func loadConfig(file string) error {
	viper.SetEnvPrefix("LEDCLOCK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

func setupLogging(level string, json bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	if json {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return nil
}

// daemonConfig is the process configuration of the clock daemon.
type daemonConfig struct {
	HTTPAddr   string
	Settings   string
	Strip      string
	SPIPort    string
	I2CBus     string
	Battery    bool
	ADCBus     string
	ADCChannel int
	ADCDivider float64
	ButtonPin  int
	WiFiIface  string
	Broker     string
	Heartbeat  time.Duration
	Poll       time.Duration
	MDNS       bool
}

func configFromViper() daemonConfig {
	return daemonConfig{
		HTTPAddr:   viper.GetString("http"),
		Settings:   viper.GetString("settings"),
		Strip:      viper.GetString("strip"),
		SPIPort:    viper.GetString("spi"),
		I2CBus:     viper.GetString("i2c"),
		Battery:    viper.GetBool("battery"),
		ADCBus:     viper.GetString("adc-bus"),
		ADCChannel: viper.GetInt("adc-channel"),
		ADCDivider: viper.GetFloat64("adc-divider"),
		ButtonPin:  viper.GetInt("button"),
		WiFiIface:  viper.GetString("wifi"),
		Broker:     viper.GetString("broker"),
		Heartbeat:  viper.GetDuration("heartbeat"),
		Poll:       viper.GetDuration("poll"),
		MDNS:       viper.GetBool("mdns"),
	}
}

func newPrintFrameCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "print-frame",
		Short: "Print the frame the clock would show and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := config.NewFileStore(viper.GetString("settings"))
			cfg, fresh, err := store.Load()
			if err != nil {
				if !fresh {
					return err
				}
				log.Warn().Err(err).Msg("could not store factory settings")
			}

			now := time.Now()
			if at != "" {
				now, err = time.Parse("15:04:05", at)
				if err != nil {
					return fmt.Errorf("--at: want HH:MM:SS: %w", err)
				}
			}
			wt := clock.FromTime(now)
			printFrame(cmd.OutOrStdout(), wt, &cfg, render.Preview(wt, cfg, 0))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Wall time to render, HH:MM:SS (default now)")
	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore factory settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := viper.GetString("settings")
			if err := config.NewFileStore(path).Save(config.Defaults()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "settings reset: %s\n", path)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledclock %s\n", version)
		},
	}
}

// printFrame writes the time, effect and brightness, then one line per lit
// LED.
func printFrame(w io.Writer, now clock.WallTime, cfg *config.ClockConfig, res render.Result) {
	mode := effect.Mode(cfg.EffectMode).String()
	if res.Night {
		mode = "night/" + cfg.NightLight.Mode.String()
	}
	fmt.Fprintf(w, "%s %s brightness=%d\n", now, mode, res.Brightness)
	for _, i := range res.Frame.Lit() {
		fmt.Fprintf(w, "%2d %s\n", i, res.Frame[i].Hex())
	}
}
