/*
Package pgadapter provides an implementation of the
dbdataset.Adapter interface that works over a PostgreSQL
database.
*/
package pgadapter

import (
	"database/sql"
	"fmt"

	"github.com/pbanos/canopy/dataset/dbdataset"
	"github.com/pbanos/canopy/set/sqlset"
	"github.com/pkg/errors"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

// Dialect is the PostgreSQL dialect of the samples table statements
var Dialect = sqlset.Dialect{
	IDColumn: "SERIAL PRIMARY KEY",
	Placeholder: func(n int) string {
		return fmt.Sprintf("$%d", n)
	},
}

/*
New takes a PostgreSQL database connection URL and returns
an Adapter that works on the database or an error if it fails to connect to it.
*/
func New(url string) (dbdataset.Adapter, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "opening PostgreSQL database")
	}
	return sqlset.NewAdapter(db, Dialect), nil
}
