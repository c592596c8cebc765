// Package pdf génère le registre des ventes d'artifices au format PDF (A4).
//
// Mise en page :
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  EN-TÊTE : Magasin + adresse  │  Période + date d'édition    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLEAU : Date | Acheteur | Pièce | Catégorie | Qté | ...   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAUX : ventes / articles / montant                        │
//	│  MENTION : conservation du registre                          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
)

// ── Couleurs ─────────────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 153, Green: 27, Blue: 27}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Générateur ───────────────────────────────────────────────────────────────

// RegisterGenerator produit le PDF du registre d'un magasin sur une période.
type RegisterGenerator struct {
	loc *time.Location
	now func() time.Time
}

// NewRegisterGenerator construit le générateur ; les heures sont affichées dans loc.
func NewRegisterGenerator(loc *time.Location) *RegisterGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &RegisterGenerator{loc: loc, now: time.Now}
}

// GenerateRegisterPDF renvoie les octets du document.
func (g *RegisterGenerator) GenerateRegisterPDF(_ context.Context, reg *sales.Register) ([]byte, error) {
	storeName := "Registre"
	if reg.Store != nil {
		storeName = reg.Store.Name
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Registre des ventes d'artifices", true).
		WithAuthor(storeName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(g.headerRow(reg))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(g.tableRows(reg.Sales)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(reg.Sales))
	m.AddRows(line.NewRow(3))
	m.AddRows(row.New(8).Add(col.New(12).Add(
		text.New("Registre tenu pour la vente de produits pyrotechniques. "+
			"Les données sont conservées au plus 19 mois puis supprimées automatiquement.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2}),
	)))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: générer le registre: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Sections ─────────────────────────────────────────────────────────────────

func (g *RegisterGenerator) headerRow(reg *sales.Register) core.Row {
	name, address := "Tous magasins", ""
	if reg.Store != nil {
		name = reg.Store.Name
		address = joinNonEmpty(reg.Store.Address, reg.Store.City)
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(address, "—"), props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("REGISTRE DES VENTES", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(periodLabel(reg), props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Top: 7}),
			text.New("Édité le "+g.now().In(g.loc).Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Date", 1, align.Left),
		h("Acheteur", 2, align.Left),
		h("Naissance", 1, align.Center),
		h("Pièce", 2, align.Left),
		h("Produits", 3, align.Left),
		h("Qté", 1, align.Center),
		h("Paiement", 1, align.Center),
		h("Montant", 1, align.Right),
	)
}

func (g *RegisterGenerator) tableRows(list []*entity.Sale) []core.Row {
	out := make([]core.Row, 0, len(list))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7.5, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, s := range list {
		birth := ""
		if !s.CustomerBirthDate.IsZero() {
			birth = s.CustomerBirthDate.Format("02/01/2006")
		}
		products := ""
		for i, l := range s.Lines {
			if i > 0 {
				products += ", "
			}
			products += fmt.Sprintf("%s %s ×%d", l.CategoryCode, l.ProductType, l.Quantity)
		}
		height := 7.0
		if n := len(s.Lines); n > 2 {
			height += float64(n-2) * 3
		}
		out = append(out, row.New(height).Add(
			cell(s.CreatedAt.In(g.loc).Format("02/01/06 15:04"), 1, align.Left),
			cell(s.CustomerLastName+" "+s.CustomerFirstName, 2, align.Left),
			cell(birth, 1, align.Center),
			cell(s.IDType+" "+s.IDNumber, 2, align.Left),
			cell(products, 3, align.Left),
			cell(strconv.Itoa(s.TotalQuantity()), 1, align.Center),
			cell(s.PaymentMethod, 1, align.Center),
			cell(formatEuro(s.Amount), 1, align.Right),
		))
	}
	return out
}

func totalsRow(list []*entity.Sale) core.Row {
	total := decimal.Zero
	qty := 0
	for _, s := range list {
		total = total.Add(s.Amount)
		qty += s.TotalQuantity()
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(label("Ventes :"), label("Articles :"), label("Montant total :")),
		col.New(3).Add(
			value(strconv.Itoa(len(list))),
			value(strconv.Itoa(qty)),
			text.New(formatEuro(total), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1,
			}),
		),
	)
}

// ── utilitaires ─────────────────────────────────────────────────────────────

func periodLabel(reg *sales.Register) string {
	switch {
	case reg.From.IsZero() && reg.To.IsZero():
		return "Toutes périodes"
	case reg.To.IsZero():
		return "Depuis le " + reg.From.Format("02/01/2006")
	case reg.From.IsZero():
		return "Jusqu'au " + reg.To.AddDate(0, 0, -1).Format("02/01/2006")
	}
	return "Du " + reg.From.Format("02/01/2006") + " au " + reg.To.AddDate(0, 0, -1).Format("02/01/2006")
}

// formatEuro "1234.5" → "1 234,50 €".
func formatEuro(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac + " €"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += p
	}
	return out
}
