// Package csvexport écrit le registre des ventes au format CSV lisible par Excel (FR).
package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/registre-pyro/registre-api/internal/application/sales"
)

// Header colonnes du registre, une ligne par produit vendu.
var Header = []string{
	"Date", "Heure", "Nom", "Prénom", "Date de naissance",
	"Pièce d'identité", "N° pièce", "Délivrée par",
	"Catégorie", "Produit", "Quantité", "Code-barres",
	"Paiement", "Montant", "Vendeur",
}

// Options format de sortie.
type Options struct {
	// Windows1252 encode la sortie en CP1252 (Excel FR) au lieu d'UTF-8.
	Windows1252 bool
	Location    *time.Location
}

// WriteRegister écrit le registre dans w. Le montant n'apparaît que sur la première ligne de chaque vente.
func WriteRegister(w io.Writer, reg *sales.Register, opts Options) error {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	var tw *transform.Writer
	if opts.Windows1252 {
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder()))
		w = tw
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	cw.UseCRLF = true

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csv: en-tête: %w", err)
	}
	for _, s := range reg.Sales {
		at := s.CreatedAt.In(loc)
		birth := ""
		if !s.CustomerBirthDate.IsZero() {
			birth = s.CustomerBirthDate.Format("02/01/2006")
		}
		base := []string{
			at.Format("02/01/2006"), at.Format("15:04"),
			s.CustomerLastName, s.CustomerFirstName, birth,
			s.IDType, s.IDNumber, s.IDIssuedBy,
		}
		amount := FormatAmount(s.Amount.StringFixed(2))
		if len(s.Lines) == 0 {
			rec := append(append([]string{}, base...), "", "", "", "", s.PaymentMethod, amount, s.UserID)
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("csv: vente %s: %w", s.ID, err)
			}
			continue
		}
		for i, l := range s.Lines {
			rec := append(append([]string{}, base...),
				l.CategoryCode, l.ProductType, strconv.Itoa(l.Quantity), l.Barcode, s.PaymentMethod)
			if i == 0 {
				rec = append(rec, amount)
			} else {
				rec = append(rec, "")
			}
			rec = append(rec, s.UserID)
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("csv: vente %s: %w", s.ID, err)
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: flush: %w", err)
	}
	if tw != nil {
		return tw.Close()
	}
	return nil
}

// FormatAmount remplace le point décimal par une virgule ("49.90" → "49,90").
func FormatAmount(s string) string {
	return strings.Replace(s, ".", ",", 1)
}

// Filename nom de fichier proposé au téléchargement.
func Filename(reg *sales.Register, ext string) string {
	name := "registre"
	if reg.Store != nil {
		name += "-" + slug(reg.Store.Name)
	}
	if !reg.From.IsZero() {
		name += "-" + reg.From.Format("20060102")
	}
	if !reg.To.IsZero() {
		name += "-" + reg.To.AddDate(0, 0, -1).Format("20060102")
	}
	return name + "." + ext
}

func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
