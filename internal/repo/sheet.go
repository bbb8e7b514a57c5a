package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-turf-booking/internal/domain"
	"github.com/tbourn/go-turf-booking/internal/ledger"
)

// GormSheet stores a ledger sheet as one row per non-empty cell.
type GormSheet struct {
	DB   *gorm.DB
	Name string
}

var _ ledger.Sheet = (*GormSheet)(nil)

// NewGormSheet returns the sheet called name in db.
func NewGormSheet(db *gorm.DB, name string) *GormSheet {
	return &GormSheet{DB: db, Name: name}
}

func (s *GormSheet) cells(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Model(&domain.LedgerCell{}).Where("sheet = ?", s.Name)
}

func (s *GormSheet) maxOf(ctx context.Context, column string) (int, error) {
	var n int
	err := s.cells(ctx).Select("COALESCE(MAX(" + column + "), 0)").Scan(&n).Error
	return n, err
}

// Values implements ledger.Sheet.
func (s *GormSheet) Values(ctx context.Context) ([][]string, error) {
	var cells []domain.LedgerCell
	if err := s.cells(ctx).Find(&cells).Error; err != nil {
		return nil, err
	}
	maxRow, maxCol := 0, 0
	for _, c := range cells {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	out := make([][]string, maxRow)
	for i := range out {
		out[i] = make([]string, maxCol)
	}
	for _, c := range cells {
		out[c.Row-1][c.Col-1] = c.Value
	}
	return out, nil
}

// Row implements ledger.Sheet.
func (s *GormSheet) Row(ctx context.Context, row int) ([]string, error) {
	width, err := s.maxOf(ctx, "col_no")
	if err != nil {
		return nil, err
	}
	var cells []domain.LedgerCell
	if err := s.cells(ctx).Where("row_no = ?", row).Find(&cells).Error; err != nil {
		return nil, err
	}
	out := make([]string, width)
	for _, c := range cells {
		out[c.Col-1] = c.Value
	}
	return out, nil
}

// ColumnValues implements ledger.Sheet.
func (s *GormSheet) ColumnValues(ctx context.Context, col, fromRow, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	var cells []domain.LedgerCell
	err := s.cells(ctx).
		Where("col_no = ? AND row_no >= ? AND row_no < ?", col, fromRow, fromRow+n).
		Find(&cells).Error
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for _, c := range cells {
		out[c.Row-fromRow] = c.Value
	}
	return out, nil
}

// LastRow implements ledger.Sheet.
func (s *GormSheet) LastRow(ctx context.Context) (int, error) {
	return s.maxOf(ctx, "row_no")
}

// WriteRow implements ledger.Sheet. All cells are written in one
// transaction; empty values delete the cell.
func (s *GormSheet) WriteRow(ctx context.Context, row, col int, values []string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i, v := range values {
			if err := s.put(tx, row, col+i, v, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteCell implements ledger.Sheet.
func (s *GormSheet) WriteCell(ctx context.Context, row, col int, value string) error {
	return s.put(s.DB.WithContext(ctx), row, col, value, time.Now().UTC())
}

func (s *GormSheet) put(tx *gorm.DB, row, col int, value string, now time.Time) error {
	if value == "" {
		return tx.Where("sheet = ? AND row_no = ? AND col_no = ?", s.Name, row, col).
			Delete(&domain.LedgerCell{}).Error
	}
	cell := domain.LedgerCell{Sheet: s.Name, Row: row, Col: col, Value: value, UpdatedAt: now}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sheet"}, {Name: "row_no"}, {Name: "col_no"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cell).Error
}

// Stats returns the sheet's cell count and latest write time.
func (s *GormSheet) Stats(ctx context.Context) (int64, *time.Time, error) {
	return SheetStats(ctx, s.DB, s.Name)
}
