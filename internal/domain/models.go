// Package domain defines the persistence models of the booking service:
// ledger cells, uploaded documents, payment claims and gateway orders.
// These types are mapped with GORM.
package domain

import "time"

// LedgerCell is one cell of a ledger sheet. Rows and columns are 1-based,
// like a spreadsheet; absent cells read as empty strings.
//
// Fields:
//   - Sheet: ledger name, so one database can hold several sheets.
//   - Row / Col: cell address; together with Sheet the primary key.
//   - Value: cell text. Empty values are deleted rather than stored.
//   - UpdatedAt: last write, used for ledger ETags.
type LedgerCell struct {
	Sheet     string    `json:"sheet"      gorm:"type:varchar(64);primaryKey"`
	Row       int       `json:"row"        gorm:"column:row_no;primaryKey;autoIncrement:false"`
	Col       int       `json:"col"        gorm:"column:col_no;primaryKey;autoIncrement:false"`
	Value     string    `json:"value"      gorm:"type:text;not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_ledger_cells_updated"`
}

// TableName returns the database table name for LedgerCell.
func (LedgerCell) TableName() string { return "ledger_cells" }

// Document is an uploaded identity document referenced from a booking row.
type Document struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name"         gorm:"type:varchar(255);not null"`
	ContentType string    `json:"content_type" gorm:"type:varchar(128);not null"`
	Size        int       `json:"size"         gorm:"not null"`
	Data        []byte    `json:"-"            gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string { return "documents" }
