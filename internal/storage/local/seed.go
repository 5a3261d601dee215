package local

import (
	"github.com/shopspring/decimal"

	"github.com/grosnack/grosnack/internal/domain/product"
)

// SeedCatalog returns the built-in demo catalog used when no database is
// configured. The seed-db command loads the same catalog into PostgreSQL.
func SeedCatalog() []product.Product {
	price := func(s string) decimal.Decimal { return decimal.RequireFromString(s) }
	return []product.Product{
		{
			ID: "chips-sea-salt", Name: "Sea Salt Potato Chips", Brand: "CrispWorks",
			Category: "chips", Price: price("3.49"), WholesalePrice: price("2.10"),
			MinOrderQty: 12, MaxOrderQty: 480, Stock: 240, Available: true,
		},
		{
			ID: "chips-jalapeno", Name: "Jalapeno Kettle Chips", Brand: "CrispWorks",
			Category: "chips", Price: price("3.99"), WholesalePrice: price("2.45"),
			MinOrderQty: 12, MaxOrderQty: 480, Stock: 180, Available: true,
		},
		{
			ID: "pretzel-classic", Name: "Classic Salted Pretzels", Brand: "Twist & Co",
			Category: "pretzels", Price: price("2.99"), WholesalePrice: price("1.80"),
			MinOrderQty: 24, MaxOrderQty: 960, Stock: 320, Available: true,
		},
		{
			ID: "popcorn-caramel", Name: "Caramel Popcorn", Brand: "PopCulture",
			Category: "popcorn", Price: price("4.49"), WholesalePrice: price("2.95"),
			MinOrderQty: 10, MaxOrderQty: 300, Stock: 150, Available: true,
		},
		{
			ID: "popcorn-cheddar", Name: "White Cheddar Popcorn", Brand: "PopCulture",
			Category: "popcorn", Price: price("4.49"), WholesalePrice: price("2.95"),
			MinOrderQty: 10, MaxOrderQty: 300, Stock: 90, Available: true,
		},
		{
			ID: "bar-peanut", Name: "Peanut Energy Bar", Brand: "TrailFuel",
			Category: "bars", Price: price("1.99"), WholesalePrice: price("1.15"),
			MinOrderQty: 36, MaxOrderQty: 1440, Stock: 600, Available: true,
		},
		{
			ID: "bar-choco", Name: "Dark Chocolate Oat Bar", Brand: "TrailFuel",
			Category: "bars", Price: price("2.29"), WholesalePrice: price("1.35"),
			MinOrderQty: 36, MaxOrderQty: 1440, Stock: 480, Available: true,
		},
		{
			ID: "nuts-almond", Name: "Roasted Almonds", Brand: "NutHouse",
			Category: "nuts", Price: price("6.99"), WholesalePrice: price("4.50"),
			MinOrderQty: 8, MaxOrderQty: 200, Stock: 110, Available: true,
		},
		{
			ID: "nuts-cashew", Name: "Honey Cashews", Brand: "NutHouse",
			Category: "nuts", Price: price("7.49"), WholesalePrice: price("4.95"),
			MinOrderQty: 8, MaxOrderQty: 200, Stock: 75, Available: true,
		},
		{
			ID: "jerky-original", Name: "Original Beef Jerky", Brand: "Smokehouse",
			Category: "jerky", Price: price("8.99"), WholesalePrice: price("5.85"),
			MinOrderQty: 6, MaxOrderQty: 120, Stock: 60, Available: true,
		},
	}
}
