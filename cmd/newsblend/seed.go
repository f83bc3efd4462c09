package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nsahraei/newsblend/config"
	"github.com/nsahraei/newsblend/internal/store"
	"github.com/nsahraei/newsblend/models"
)

// seedItem is one catalog entry in a seed file; status defaults to
// published when omitted.
type seedItem struct {
	models.ContentItem
	Status string `json:"status"`
}

func seedCMD() *cobra.Command {
	var file string
	var cfgPath string
	var seed = &cobra.Command{
		Use:   "seed",
		Short: "Load content items from a JSON file into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var items []seedItem
			if err := json.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
			if err != nil {
				return err
			}

			for _, it := range items {
				status := it.Status
				if status == "" {
					status = models.StatusPublished
				}
				id, err := st.InsertContent(ctx, it.ContentItem, status)
				if err != nil {
					return fmt.Errorf("insert %q: %w", it.Title, err)
				}
				fmt.Printf("seeded %s %s\n", it.Kind, id)
			}
			return nil
		},
	}
	seed.Flags().StringVar(&file, "file", "examples/content.json", "path to content JSON")
	seed.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return seed
}
