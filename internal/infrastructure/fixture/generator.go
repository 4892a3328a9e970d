// Package fixture generates demo users and pricing requests with gofakeit.
package fixture

import (
	"fmt"
	"strings"
	"time"

	"github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
)

var (
	commodityClasses = []string{"50", "55", "60", "65", "70", "77.5", "85", "92.5", "100", "125", "150"}
	containerTypes   = []string{"Pallet", "Crate", "Drum", "Box", "Bundle", "Tote"}
	handlingUnits    = []string{"PLT", "SKD", "CTN", "DRM", ""}
	accessorials     = []string{"Liftgate", "Residential", "Inside Delivery", "Limited Access", ""}
	dockOptions      = []string{"Dock", "Liftgate", "Appointment", "Curbside"}
	discounts        = []string{"", "5%", "10%", "15%", "Contract"}
)

// Generator produces valid, plausible pricing request details. A zero seed
// draws a random one; equal seeds give equal sequences.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator
func NewGenerator(seed uint64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Details returns a complete set of request details that passes validation
func (g *Generator) Details() pricing.Details {
	f := g.faker
	d := pricing.Details{
		ShipmentDate: pricing.TruncateDate(f.DateRange(time.Now(), time.Now().AddDate(0, 2, 0))),
		AccountInfo:  f.Company(),
		Discount:     f.RandomString(discounts),
		Origin:       g.Address(),
		Destination:  g.Address(),
		Accessorial:  f.RandomString(accessorials),
		Pickup:       f.RandomString(dockOptions),
		Delivery:     f.RandomString(dockOptions),
	}
	if f.Bool() {
		d.DaylightProtect = true
		d.InsuranceDescription = fmt.Sprintf("Declared value $%d", f.Number(1000, 250000))
		d.InsuranceNote = f.Sentence(6)
	}
	n := f.Number(1, 3)
	d.Items = make([]pricing.LineItem, n)
	for i := range d.Items {
		d.Items[i] = g.LineItem()
	}
	return d
}

// LineItem returns one valid line item
func (g *Generator) LineItem() pricing.LineItem {
	f := g.faker
	pieces := f.Number(1, 40)
	return pricing.LineItem{
		Name:           f.ProductName(),
		CommodityClass: f.RandomString(commodityClasses),
		TotalWeight:    decimal.NewFromInt(int64(f.Number(50, 20000))),
		HandlingUnit:   f.RandomString(handlingUnits),
		Pieces:         pieces,
		ContainerType:  f.RandomString(containerTypes),
		Pallets:        f.Number(0, pieces),
	}
}

// Address returns a US address
func (g *Generator) Address() pricing.Address {
	f := g.faker
	return pricing.Address{
		Address: f.Street() + ", " + f.City(),
		State:   f.StateAbr(),
		Zip:     f.Zip(),
		Country: pricing.DefaultCountry,
	}
}

// Comment returns a short analyst remark
func (g *Generator) Comment() string {
	return strings.TrimSuffix(g.faker.Sentence(8), ".")
}

// Username returns a display name
func (g *Generator) Username() string {
	return g.faker.Name()
}

// Email returns a unique-looking address under the demo domain
func (g *Generator) Email() string {
	return strings.ToLower(g.faker.Username()) + fmt.Sprintf("%d@prdesk.local", g.faker.Number(100, 999))
}
