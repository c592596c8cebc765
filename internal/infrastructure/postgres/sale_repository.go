package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/registre-pyro/registre-api/internal/domain"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

const saleColumns = `id, store_id, user_id, customer_last_name, customer_first_name, customer_birth_date,
	id_type, id_number, id_issued_by, payment_method, amount, notes, created_at`

// SaleRepo implémentation du port SaleRepository sur PostgreSQL.
// Les lignes et photos sont supprimées en cascade avec la vente.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construit l'adaptateur. Pour Create, passer une tx (voir TxRunner).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create insère la vente, ses lignes et ses photos.
func (r *SaleRepo) Create(ctx context.Context, sale *entity.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	var birth *time.Time
	if !sale.CustomerBirthDate.IsZero() {
		birth = &sale.CustomerBirthDate
	}

	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		sale.ID, sale.StoreID, sale.UserID, sale.CustomerLastName, sale.CustomerFirstName, birth,
		sale.IDType, sale.IDNumber, sale.IDIssuedBy, sale.PaymentMethod, sale.Amount, nullIfEmpty(sale.Notes),
		sale.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: magasin ou utilisateur inexistant", domain.ErrInvalidInput)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for i := range sale.Lines {
		l := &sale.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.SaleID = sale.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_lines (id, sale_id, product_type, category_code, quantity, barcode)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, l.SaleID, l.ProductType, l.CategoryCode, l.Quantity, nullIfEmpty(l.Barcode),
		)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}

	for i := range sale.Photos {
		p := &sale.Photos[i]
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		p.SaleID = sale.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_photos (id, sale_id, kind, mime_type, data)
			VALUES ($1, $2, $3, $4, $5)`,
			p.ID, p.SaleID, p.Kind, p.MimeType, p.Data,
		)
		if err != nil {
			return fmt.Errorf("insert sale photo: %w", err)
		}
	}
	return nil
}

// GetByID charge la vente et ses lignes. nil si absente.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := scanSale(r.q.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale by id: %w", err)
	}
	if err := r.attachLines(ctx, []*entity.Sale{sale}); err != nil {
		return nil, err
	}
	return sale, nil
}

// ListPhotos photos d'une vente, triées par type.
func (r *SaleRepo) ListPhotos(ctx context.Context, saleID string) ([]entity.SalePhoto, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, kind, mime_type, data
		FROM sale_photos WHERE sale_id = $1 ORDER BY kind`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale photos: %w", err)
	}
	defer rows.Close()
	var list []entity.SalePhoto
	for rows.Next() {
		var p entity.SalePhoto
		if err := rows.Scan(&p.ID, &p.SaleID, &p.Kind, &p.MimeType, &p.Data); err != nil {
			return nil, fmt.Errorf("scan sale photo: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sale photos: %w", err)
	}
	return list, nil
}

// ListSalesForStore ventes d'un magasin, plus récentes d'abord, lignes incluses.
func (r *SaleRepo) ListSalesForStore(ctx context.Context, filter repository.SaleFilter) ([]*entity.Sale, error) {
	var (
		conds = []string{"store_id = $1"}
		args  = []any{filter.StoreID}
	)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT ` + saleColumns + ` FROM sales WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()
	var list []*entity.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete supprime une vente (lignes et photos en cascade).
func (r *SaleRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountSales nombre total de ventes.
func (r *SaleRepo) CountSales(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}

// CountSalesOlderThan nombre de ventes créées strictement avant cutoff.
func (r *SaleRepo) CountSalesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE created_at < $1`, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("count old sales: %w", err)
	}
	return n, nil
}

// DeleteSalesOlderThan supprime les ventes créées strictement avant cutoff.
func (r *SaleRepo) DeleteSalesOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM sales WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old sales: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SaleRepo) attachLines(ctx context.Context, sales []*entity.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	ids := make([]string, 0, len(sales))
	byID := make(map[string]*entity.Sale, len(sales))
	for _, s := range sales {
		ids = append(ids, s.ID)
		byID[s.ID] = s
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, product_type, category_code, quantity, barcode
		FROM sale_lines WHERE sale_id = ANY($1::uuid[]) ORDER BY sale_id, id`, ids)
	if err != nil {
		return fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.SaleLine
		var barcode *string
		if err := rows.Scan(&l.ID, &l.SaleID, &l.ProductType, &l.CategoryCode, &l.Quantity, &barcode); err != nil {
			return fmt.Errorf("scan sale line: %w", err)
		}
		l.Barcode = derefString(barcode)
		if s, ok := byID[l.SaleID]; ok {
			s.Lines = append(s.Lines, l)
		}
	}
	return rows.Err()
}

func scanSale(row pgx.Row) (*entity.Sale, error) {
	var s entity.Sale
	var birth *time.Time
	var notes *string
	if err := row.Scan(
		&s.ID, &s.StoreID, &s.UserID, &s.CustomerLastName, &s.CustomerFirstName, &birth,
		&s.IDType, &s.IDNumber, &s.IDIssuedBy, &s.PaymentMethod, &s.Amount, &notes, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	if birth != nil {
		s.CustomerBirthDate = *birth
	}
	s.Notes = derefString(notes)
	return &s, nil
}
