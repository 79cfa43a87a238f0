package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prism-beauty/ingestion-engine/cmd/ingestion-cli/ui"
	"github.com/prism-beauty/ingestion-engine/internal/category"
	"github.com/prism-beauty/ingestion-engine/internal/storage"
)

// newProductsCmd creates the products subcommand group.
func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect and manage the product catalog",
	}

	cmd.AddCommand(newProductsListCmd())
	cmd.AddCommand(newProductsShowCmd())
	cmd.AddCommand(newProductsAddCmd())

	return cmd
}

func newProductsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog products",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			products, err := app.repos.Products.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}

			if outputJSON {
				return printJSON(products)
			}

			rows := make([][]string, 0, len(products))
			for _, p := range products {
				rows = append(rows, []string{p.ID.String(), p.Name, p.Brand, p.Category})
			}
			ui.Table([]string{"ID", "NAME", "BRAND", "CATEGORY"}, rows)
			ui.Info("%d products", len(products))
			return nil
		},
	}
}

func newProductsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show a product with its consolidated data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			productID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id: %w", err)
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			consolidated := storage.NewConsolidatedRepository(app.repos)
			product, err := consolidated.Get(cmd.Context(), productID)
			if err != nil {
				return err
			}

			if outputJSON {
				return printJSON(product)
			}

			ui.Section(fmt.Sprintf("%s - %s", product.Product.Brand, product.Product.Name))
			ui.Info("Category: %s", product.Product.Category)

			if len(product.Offers) > 0 {
				rows := make([][]string, 0, len(product.Offers))
				for retailer, offer := range product.Offers {
					price := "-"
					if offer.PriceAmount != nil {
						price = fmt.Sprintf("%.2f %s", *offer.PriceAmount, offer.PriceCurrency)
					}
					rating := "-"
					if r, ok := product.Ratings[retailer]; ok && r.Average != nil {
						rating = fmt.Sprintf("%.1f (%d)", *r.Average, r.Count)
					}
					rows = append(rows, []string{retailer, price, rating})
				}
				ui.Table([]string{"RETAILER", "PRICE", "RATING"}, rows)
			}

			if product.Summary != nil {
				if product.Summary.Verdict != nil {
					ui.Info("Verdict: %s", *product.Summary.Verdict)
				}
				if len(product.Summary.Pros) > 0 {
					ui.Info("Pros: %s", strings.Join(product.Summary.Pros, "; "))
				}
				if len(product.Summary.Cons) > 0 {
					ui.Info("Cons: %s", strings.Join(product.Summary.Cons, "; "))
				}
			}
			return nil
		},
	}
}

func newProductsAddCmd() *cobra.Command {
	var (
		name        string
		brand       string
		catFlag     string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product to the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cat := catFlag
			if cat == "" {
				cat = string(category.Classify(name, brand, description))
			}

			product := &storage.Product{
				Name:        name,
				Brand:       brand,
				Category:    cat,
				Description: description,
			}
			if err := app.repos.Products.Create(cmd.Context(), product); err != nil {
				return fmt.Errorf("create product: %w", err)
			}

			if outputJSON {
				return printJSON(product)
			}

			ui.Success("Created product %s (%s)", product.ID, product.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&brand, "brand", "", "brand name")
	cmd.Flags().StringVar(&catFlag, "category", "", "category override (detected from the name when omitted)")
	cmd.Flags().StringVar(&description, "description", "", "product description")

	return cmd
}
