package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// BindTx returns a gorm handle whose statements run on tx. A nil tx returns db
// unchanged. The session clones the statement so the root handle keeps its
// own connection pool.
func BindTx(db *gorm.DB, tx *sql.Tx) *gorm.DB {
	if tx == nil || db == nil {
		return db
	}
	bound := db.Session(&gorm.Session{Context: context.Background(), SkipDefaultTransaction: true})
	bound.Statement.ConnPool = tx
	return bound
}
