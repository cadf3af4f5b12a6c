package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/db"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML layout accepted by the seed command.
type SeedFile struct {
	Categories []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	Name     string        `yaml:"name"`
	ImageURL *string       `yaml:"image_url"`
	Products []SeedProduct `yaml:"products"`
}

// SeedProduct keeps money as strings so values like 7.10 are read exactly.
type SeedProduct struct {
	Name     string  `yaml:"name"`
	Price    string  `yaml:"price"`
	Cost     string  `yaml:"cost"`
	Stock    int     `yaml:"stock"`
	Active   *bool   `yaml:"active"`
	ImageURL *string `yaml:"image_url"`
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Categories int
	Products   int
	Skipped    int
}

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Load categories and products from a YAML file",
		Long: `Load categories and products from a YAML file.

Categories are upserted by name. A product is skipped when an active product
with the same name already exists in its category, so the command can be
re-run against the same file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			file, err := parseSeedFile(f)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pg, err := db.New(ctx, rootOpts.cfg.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			res, err := seedCatalog(ctx, catalog.NewService(catalog.NewRepository(pg.Pool)), file)
			if err != nil {
				return err
			}
			log.Info().
				Int("categories", res.Categories).
				Int("products", res.Products).
				Int("skipped", res.Skipped).
				Msg("Catalog seeded")
			return nil
		},
	}
}

func parseSeedFile(r io.Reader) (*SeedFile, error) {
	var file SeedFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}
	return &file, nil
}

func (p SeedProduct) toProduct(categoryID int64) (*catalog.Product, error) {
	price, err := parseMoney(p.Price)
	if err != nil {
		return nil, fmt.Errorf("product %q: invalid price: %w", p.Name, err)
	}
	cost, err := parseMoney(p.Cost)
	if err != nil {
		return nil, fmt.Errorf("product %q: invalid cost: %w", p.Name, err)
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}

	return &catalog.Product{
		Name:       p.Name,
		CategoryID: categoryID,
		Price:      price,
		Cost:       cost,
		Stock:      p.Stock,
		Active:     active,
		ImageURL:   p.ImageURL,
	}, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func seedCatalog(ctx context.Context, svc catalog.Service, file *SeedFile) (SeedResult, error) {
	var res SeedResult

	for _, sc := range file.Categories {
		category := &catalog.Category{Name: sc.Name, ImageURL: sc.ImageURL}
		if err := svc.SaveCategory(ctx, category); err != nil {
			return res, fmt.Errorf("category %q: %w", sc.Name, err)
		}
		res.Categories++

		existing, err := svc.ListActiveProducts(ctx, &category.ID)
		if err != nil {
			return res, fmt.Errorf("category %q: %w", sc.Name, err)
		}
		known := make(map[string]bool, len(existing))
		for _, p := range existing {
			known[p.Name] = true
		}

		for _, sp := range sc.Products {
			if known[sp.Name] {
				res.Skipped++
				continue
			}
			product, err := sp.toProduct(category.ID)
			if err != nil {
				return res, err
			}
			if err := svc.CreateProduct(ctx, product); err != nil {
				return res, fmt.Errorf("product %q: %w", sp.Name, err)
			}
			known[sp.Name] = true
			res.Products++
		}
	}

	return res, nil
}
