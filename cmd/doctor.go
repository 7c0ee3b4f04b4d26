package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/musafirlabs/wahapipe/internal/config"
	"github.com/musafirlabs/wahapipe/internal/dedup"
	"github.com/musafirlabs/wahapipe/internal/store"
	"github.com/musafirlabs/wahapipe/internal/waha"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check gateway connectivity, store health and configuration",
		Run: func(cmd *cobra.Command, args []string) {
			setupLogging()
			runDoctor()
		},
	}
}

func runDoctor() {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("✗ config: %v\n", err)
		return
	}
	fmt.Printf("✓ config loaded (%s)\n", path)

	gw := cfg.GatewaySnapshot()
	fmt.Printf("  gateway: %s session=%s\n", gw.BaseURL, gw.Session)
	if gw.APIKey == "" {
		fmt.Println("! gateway API key not set (WAHAPIPE_GATEWAY_API_KEY)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := waha.NewClient(gw)
	if err := client.TestConnection(ctx); err != nil {
		fmt.Printf("✗ gateway: %v\n", err)
	} else {
		fmt.Println("✓ gateway reachable")
	}

	if cfg.UsesPostgres() {
		db, err := store.OpenPG(cfg.Database.PostgresDSN)
		if err != nil {
			fmt.Printf("✗ postgres: %v\n", err)
		} else if err := db.PingContext(ctx); err != nil {
			fmt.Printf("✗ postgres: %v\n", err)
			db.Close()
		} else {
			fmt.Println("✓ postgres reachable")
			if _, err := dedup.NewPGStoreFromDB(db).Sweep(ctx, cfg.Pipeline.DedupRetention.Std()); err != nil {
				fmt.Printf("! dedup schema missing — run `wahapipe migrate up` (%v)\n", err)
			} else {
				fmt.Println("✓ dedup schema present")
			}
			db.Close()
		}
	} else {
		s, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
		if err != nil {
			fmt.Printf("✗ sqlite: %v\n", err)
		} else {
			fmt.Printf("✓ sqlite ready (%s)\n", cfg.Database.SQLitePath)
			s.Close()
		}
	}

	if cfg.Responder.URL == "" {
		fmt.Println("! responder URL not set — canned replies only")
	} else {
		fmt.Printf("✓ responder configured (%s, budget %s)\n",
			cfg.Responder.URL, cfg.Responder.Timeout.Std())
	}

	if !cfg.Channels.Webhook && !cfg.Channels.Polling && !cfg.Channels.WebSocket {
		fmt.Println("✗ no ingestion channel enabled")
	}
}
