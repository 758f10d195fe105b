package tenant

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope restricts a query to one company. The column is qualified with the
// model's table so it stays unambiguous under joins.
func Scope(companyID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "company_id"},
			Value:  companyID,
		})
	}
}
