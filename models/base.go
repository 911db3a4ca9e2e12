package models

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/smartjects/importer_backend/config"
	"gorm.io/gorm"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Smartject{}, &ResearchPaper{},
		&Industry{}, &Audience{}, &BusinessFunction{},
		&SmartjectIndustry{}, &SmartjectAudience{}, &SmartjectBusinessFunction{},
		&Team{}, &SmartjectTeam{},
	)
	if err != nil {
		panic("failed to migrate tables: " + err.Error())
	}
}

const mysqlDuplicateEntry = 1062

// IsDuplicateKeyError reports whether err is a unique-constraint violation.
// Idempotent writers treat it as a benign "already there" signal.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
