package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golden-hour/config"
	"golden-hour/internal/api"
	"golden-hour/internal/display"
	"golden-hour/internal/geolocation"
	"golden-hour/internal/goldenhour"
	"golden-hour/internal/log"
	"golden-hour/internal/metrics"
	"golden-hour/internal/mqtt"
	"golden-hour/internal/session"
	"golden-hour/internal/suntimes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "golden-hour",
		Short: "Golden hour countdown",
		Long:  "Find the next golden hour for your location and count down to it",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Init(verbose)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(testCmd())

	err := rootCmd.Execute()
	log.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, display.Formatter, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, display.Formatter{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Log.Debug && !verbose {
		if err := log.Init(true); err != nil {
			return nil, display.Formatter{}, err
		}
	}
	format, err := display.NewFormatter(cfg.Display.Timezone, cfg.Display.TimeFormat)
	if err != nil {
		return nil, display.Formatter{}, err
	}
	return cfg, format, nil
}

func newSession(cfg *config.Config, format display.Formatter, recorder metrics.Recorder, renderers ...session.Renderer) (*session.Session, error) {
	source, err := suntimes.New(cfg.Sun.Provider, cfg.Sun.BaseURL, cfg.Sun.APIKey, cfg.Sun.Timeout)
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		Locator:      geolocation.New(cfg.Location.Provider, cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.IPEndpoint),
		Source:       source,
		Renderers:    renderers,
		Metrics:      recorder,
		Location:     format.Location,
		TickInterval: cfg.Display.TickInterval,
	}), nil
}

// askPermission prompts on the terminal; anything but yes is a denial.
func askPermission(in io.Reader, out io.Writer) bool {
	fmt.Fprintln(out, "To show the next golden hour we need access to your location.")
	fmt.Fprint(out, "Grant location access? [y/N] ")
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func watchCmd() *cobra.Command {
	var (
		grant  bool
		inline bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Count down to the next golden hour in the terminal",
		Long:  "Ask for location access, fetch today's sun times and count down until the next golden hour begins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sess, err := newSession(cfg, format, metrics.Nop, display.NewTerminal(out, format, inline))
			if err != nil {
				return err
			}
			defer sess.Close()

			if !grant && !cfg.Location.AutoGrant && !askPermission(cmd.InOrStdin(), out) {
				return fmt.Errorf("%w: declined at prompt", geolocation.ErrPermissionDenied)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := sess.Grant(ctx); err != nil {
				return err
			}

			select {
			case <-sess.Done():
			case <-ctx.Done():
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&grant, "yes", "y", false, "grant location access without asking")
	cmd.Flags().BoolVar(&inline, "inline", true, "rewrite the countdown on one line")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the golden hour service",
		Long:  "Start the HTTP dashboard and API and the MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := loadConfig()
			if err != nil {
				return err
			}

			publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
				Broker:      cfg.MQTT.Broker,
				ClientID:    cfg.MQTT.ClientID,
				Username:    cfg.MQTT.Username,
				Password:    cfg.MQTT.Password,
				TopicPrefix: cfg.MQTT.TopicPrefix,
				Enabled:     cfg.MQTT.Enabled,
				Formatter:   format,
			})
			if err != nil {
				log.Warnf("MQTT connection failed: %v", err)
				publisher, _ = mqtt.NewPublisher(mqtt.PublisherConfig{Enabled: false})
			} else if cfg.MQTT.Enabled {
				log.Infof("MQTT connected to %s", cfg.MQTT.Broker)
				if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
					log.Warnf("Home Assistant discovery failed: %v", err)
				}
			}
			defer publisher.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
			recorder := metrics.NewCollector(reg, session.States)

			sess, err := newSession(cfg, format, recorder, publisher)
			if err != nil {
				return err
			}
			defer sess.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:       cfg.API.Port,
					Session:    sess,
					Formatter:  format,
					Gatherer:   reg,
					Config:     cfg,
					ConfigPath: configFile,
				})

				go func() {
					if err := server.Start(); err != nil && err != http.ErrServerClosed {
						log.Errorf("API server error: %v", err)
					}
				}()
			}

			if cfg.Location.AutoGrant {
				go func() {
					if err := sess.Grant(ctx); err != nil {
						log.Errorf("Automatic grant failed: %v", err)
					}
				}()
			}

			log.Infof("Golden hour service started. Press Ctrl+C to stop.")

			<-ctx.Done()
			log.Infof("Shutting down...")

			if server != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Stop(shutdownCtx); err != nil {
					log.Warnf("API server shutdown: %v", err)
				}
			}
			return nil
		},
	}
}

type showResult struct {
	Location  geolocation.Coordinates `json:"location"`
	Provider  string                  `json:"provider"`
	Window    goldenhour.Window       `json:"window"`
	Next      time.Time               `json:"next_golden_hour"`
	Countdown string                  `json:"countdown"`
	Display   display.View            `json:"display"`
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print today's golden hour window once",
		Long:  "Fetch sun times for the configured location and print the golden hour window as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := loadConfig()
			if err != nil {
				return err
			}

			sess, err := newSession(cfg, format, metrics.Nop)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.Grant(cmd.Context()); err != nil {
				return err
			}
			snap := sess.Snapshot()

			out := showResult{
				Provider:  snap.Provider,
				Countdown: snap.Countdown.String(),
				Display:   format.View(snap, snap.UpdatedAt),
			}
			if snap.Location != nil {
				out.Location = *snap.Location
			}
			if snap.Window != nil {
				out.Window = *snap.Window
			}
			if snap.Next != nil {
				out.Next = *snap.Next
			}

			output, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(output))
			return nil
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the location and sun times sources",
		Long:  "Resolve the configured location and fetch sun times once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, format, err := loadConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			locator := geolocation.New(cfg.Location.Provider, cfg.Location.Latitude, cfg.Location.Longitude, cfg.Location.IPEndpoint)
			coords, err := locator.Locate(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "Location FAILED: %v\n", err)
				return err
			}
			fmt.Fprintf(out, "Location: %s (%s)\n", coords, cfg.Location.Provider)

			source, err := suntimes.New(cfg.Sun.Provider, cfg.Sun.BaseURL, cfg.Sun.APIKey, cfg.Sun.Timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Fetching sun times from %s...\n", source.Name())

			data, err := source.Get(cmd.Context(), coords)
			if err != nil {
				fmt.Fprintf(out, "Fetch FAILED: %v\n", err)
				return err
			}
			fmt.Fprintln(out, "Fetch SUCCESS!")

			w := goldenhour.DeriveWindow(data.Sunrise.In(format.Location), data.Sunset.In(format.Location))
			fmt.Fprintf(out, "\nSun times:\n")
			fmt.Fprintf(out, "  Sunrise:             %s\n", format.Clock(w.Sunrise))
			fmt.Fprintf(out, "  Morning Golden Hour: %s\n", format.Clock(w.MorningEnd))
			fmt.Fprintf(out, "  Evening Golden Hour: %s\n", format.Clock(w.EveningStart))
			fmt.Fprintf(out, "  Sunset:              %s\n", format.Clock(w.Sunset))
			if !w.Valid() {
				fmt.Fprintf(out, "  Warning: sunrise is not before sunset\n")
			}
			return nil
		},
	}
}
