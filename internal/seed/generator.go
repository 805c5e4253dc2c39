package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

var regions = []string{"North America", "Europe", "Asia Pacific", "Latin America", "Middle East & Africa"}

var countriesByRegion = map[string][]string{
	"North America":        {"United States", "Canada", "Mexico"},
	"Europe":               {"United Kingdom", "Germany", "France", "Netherlands", "Spain"},
	"Asia Pacific":         {"Japan", "Australia", "India", "Singapore", "South Korea"},
	"Latin America":        {"Brazil", "Argentina", "Colombia", "Chile"},
	"Middle East & Africa": {"UAE", "South Africa", "Saudi Arabia", "Nigeria"},
}

var categories = []string{"Electronics", "Software", "Services", "Hardware", "Cloud Infrastructure"}

var subcategoriesByCategory = map[string][]string{
	"Electronics":          {"Laptops", "Monitors", "Accessories", "Networking"},
	"Software":             {"Licenses", "SaaS Subscriptions", "Custom Development", "Support Plans"},
	"Services":             {"Consulting", "Training", "Implementation", "Managed Services"},
	"Hardware":             {"Servers", "Device Storage", "Peripherals", "Components"},
	"Cloud Infrastructure": {"Compute", "Cloud Storage", "Database", "AI/ML Services"},
}

var productsBySubcategory = map[string][]string{
	"Laptops":            {"ProBook 450", "EliteBook 840", "ThinkPad X1", "MacBook Pro 14"},
	"Monitors":           {"UltraSharp 27", "ProDisplay 32", "ThinkVision 24", "Studio Display"},
	"Accessories":        {"Wireless Mouse", "Mechanical Keyboard", "USB-C Hub", "Webcam HD"},
	"Networking":         {"Managed Switch 24P", "WiFi 6E Router", "Access Point Pro", "Firewall UTM"},
	"Licenses":           {"Office Suite", "Security Platform", "DevOps Tools", "Analytics Pro"},
	"SaaS Subscriptions": {"CRM Cloud", "ERP Online", "HR Suite", "Project Manager"},
	"Custom Development": {"API Integration", "Dashboard Build", "Data Pipeline", "Mobile App"},
	"Support Plans":      {"Basic Support", "Premium Support", "Enterprise Support", "24/7 Critical"},
	"Consulting":         {"Strategy Review", "Architecture Design", "Security Audit", "Cloud Migration"},
	"Training":           {"Admin Training", "Developer Bootcamp", "Executive Briefing", "Certification Prep"},
	"Implementation":     {"System Setup", "Data Migration", "Integration Setup", "Go-Live Support"},
	"Managed Services":   {"Infrastructure Mgmt", "App Monitoring", "Security Ops", "Database Admin"},
	"Servers":            {"Rack Server 1U", "Tower Server", "Blade Server", "GPU Server"},
	"Device Storage":     {"NAS 8-Bay", "SAN Array", "Backup Appliance", "Flash Storage"},
	"Peripherals":        {"Docking Station", "KVM Switch", "UPS 1500VA", "Label Printer"},
	"Components":         {"RAM 32GB", "SSD 1TB", "CPU Xeon", "GPU Tesla"},
	"Compute":            {"EC2 Instance", "Lambda Function", "Container Service", "Batch Processing"},
	"Cloud Storage":      {"S3 Bucket", "Block Storage", "Archive Storage", "CDN Distribution"},
	"Database":           {"SQL Managed", "NoSQL Service", "Cache Cluster", "Data Lake"},
	"AI/ML Services":     {"Model Training", "Inference API", "AutoML Pipeline", "Vision Service"},
}

var companyPrefixes = []string{"Acme", "Global", "Tech", "Prime", "Atlas", "Nexus", "Vertex", "Apex", "Core", "Nova"}

var companySuffixes = []string{"Corp", "Inc", "Ltd", "Group", "Solutions", "Systems", "Technologies", "Industries", "Partners", "Dynamics"}

var salesChannels = []string{"Direct", "Partner", "Online", "Reseller"}

var paymentMethods = []string{"Credit Card", "Wire Transfer", "Purchase Order", "Net 30", "Net 60"}

var customerSegments = []string{"Enterprise", "Mid-Market", "SMB", "Startup", "Government"}

var discountChoices = []float64{0, 0, 0, 0, 5, 10, 15, 20, 25}

var (
	salesStart = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	salesEnd   = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

// Generator produces the demo datasets. The same seed always produces
// the same rows.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Customers generates the customer master dataset. Roughly 2% of the
// rows carry a null company name.
func (g *Generator) Customers(n int) []Customer {
	customers := make([]Customer, 0, n)
	for i := 1; i <= n; i++ {
		region := pickOne(g.rnd, regions)
		created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, g.rnd.Intn(1801))

		var company *string
		if g.rnd.Float64() >= 0.02 {
			name := pickOne(g.rnd, companyPrefixes) + " " + pickOne(g.rnd, companySuffixes)
			company = &name
		}

		customers = append(customers, Customer{
			CustomerID:  fmt.Sprintf("CUST-%05d", i),
			CompanyName: company,
			Segment:     pickOne(g.rnd, customerSegments),
			Region:      region,
			Country:     pickOne(g.rnd, countriesByRegion[region]),
			CreatedDate: created,
			IsActive:    g.rnd.Float64() > 0.1,
		})
	}
	return customers
}

// Products flattens the category tree into the product catalog.
func (g *Generator) Products() []Product {
	products := make([]Product, 0, 80)
	pid := 1
	for _, category := range categories {
		for _, subcategory := range subcategoriesByCategory[category] {
			for _, name := range productsBySubcategory[subcategory] {
				basePrice := round2(20 + g.rnd.Float64()*14980)
				products = append(products, Product{
					ProductID:   fmt.Sprintf("PROD-%04d", pid),
					ProductName: name,
					Category:    category,
					Subcategory: subcategory,
					BasePrice:   basePrice,
					Cost:        round2(basePrice * (0.3 + g.rnd.Float64()*0.45)),
					IsActive:    g.rnd.Float64() > 0.05,
				})
				pid++
			}
		}
	}
	return products
}

// Sales generates n transactions over 2023 through 2025 with a Q4
// boost, a Q1 dip, a weekend dip, roughly 1% revenue outliers, roughly
// 3% nulls scattered across three columns, and roughly 0.5% duplicated
// rows appended at the end.
func (g *Generator) Sales(n int, customers []Customer, products []Product) []Sale {
	rangeDays := int(salesEnd.Sub(salesStart).Hours() / 24)

	sales := make([]Sale, 0, n+n/200)
	for i := 1; i <= n; i++ {
		date := salesStart.AddDate(0, 0, g.rnd.Intn(rangeDays+1))
		seasonal := g.seasonalFactor(date)

		product := products[g.rnd.Intn(len(products))]
		quantity := int64(g.rnd.ExpFloat64() / 0.3 * seasonal)
		if quantity < 1 {
			quantity = 1
		}
		unitPrice := product.BasePrice * (0.85 + g.rnd.Float64()*0.3)
		discount := pickOne(g.rnd, discountChoices)
		revenue := round2(float64(quantity) * unitPrice * (1 - discount/100))

		if g.rnd.Float64() < 0.01 {
			revenue = round2(revenue * (5 + g.rnd.Float64()*15))
			quantity *= int64(5 + g.rnd.Intn(11))
		}

		sale := Sale{
			TransactionID:   fmt.Sprintf("TXN-%06d", i),
			TransactionDate: date,
			CustomerID:      customers[g.rnd.Intn(len(customers))].CustomerID,
			ProductID:       product.ProductID,
			ProductName:     product.ProductName,
			Category:        product.Category,
			Subcategory:     product.Subcategory,
			Region:          pickOne(g.rnd, regions),
			Quantity:        quantity,
			UnitPrice:       round2(unitPrice),
			Revenue:         revenue,
			Cost:            round2(product.Cost * float64(quantity)),
			Profit:          round2(revenue - product.Cost*float64(quantity)),
			SalesChannel:    pickOne(g.rnd, salesChannels),
		}

		if g.rnd.Float64() >= 0.03 {
			d := discount
			sale.DiscountPct = &d
		}
		if g.rnd.Float64() >= 0.03 {
			method := pickOne(g.rnd, paymentMethods)
			sale.PaymentMethod = &method
		}
		if g.rnd.Float64() >= 0.03 {
			segment := pickOne(g.rnd, customerSegments)
			sale.CustomerSegment = &segment
		}

		sales = append(sales, sale)
	}

	for i := 0; i < n/200; i++ {
		sales = append(sales, sales[g.rnd.Intn(n)])
	}
	return sales
}

func (g *Generator) seasonalFactor(date time.Time) float64 {
	var factor float64
	switch date.Month() {
	case time.October, time.November, time.December:
		factor = 1.2 + g.rnd.Float64()*0.6
	case time.January, time.February:
		factor = 0.6 + g.rnd.Float64()*0.3
	case time.June, time.July:
		factor = 0.8 + g.rnd.Float64()*0.2
	default:
		factor = 0.9 + g.rnd.Float64()*0.3
	}
	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		factor *= 0.4
	}
	return factor
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne[T any](r *rand.Rand, values []T) T {
	return values[r.Intn(len(values))]
}
