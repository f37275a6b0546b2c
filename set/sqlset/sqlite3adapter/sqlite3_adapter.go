/*
Package sqlite3adapter provides an implementation of the
dbdataset.Adapter interface that works over an SQLite3
database file.
*/
package sqlite3adapter

import (
	"database/sql"

	"github.com/pbanos/canopy/dataset/dbdataset"
	"github.com/pbanos/canopy/set/sqlset"
	"github.com/pkg/errors"

	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

// Dialect is the SQLite3 dialect of the samples table statements
var Dialect = sqlset.Dialect{
	IDColumn: "INTEGER PRIMARY KEY AUTOINCREMENT",
	Placeholder: func(int) string {
		return "?"
	},
}

/*
New takes a path to an SQLite3 database file and returns an Adapter that works
on the file's database or an error if it fails to open as an sqlite3 database.
*/
func New(path string) (dbdataset.Adapter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "opening SQLite3 database")
	}
	// sqlite3 does not support concurrent writers on a connection pool
	db.SetMaxOpenConns(1)
	return sqlset.NewAdapter(db, Dialect), nil
}
