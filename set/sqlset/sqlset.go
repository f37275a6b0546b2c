/*
Package sqlset provides the SQL implementation of the dbdataset.Adapter
interface shared by the SQL database backends in its subpackages.

Samples are stored on a single samples table, with an id column, a
label column and an integer column per feature.
*/
package sqlset

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pbanos/canopy/dataset/dbdataset"
	"github.com/pkg/errors"
)

// MaxSampleInsertionsPerStatement is the maximum number
// of samples that are allowed to be added with a single
// insert command with the AddSamples method of the adapter.
// Trying to add more will result in making more insertion commands
const MaxSampleInsertionsPerStatement = 10

const labelColumn = "label"

/*
Dialect holds what differs between the SQL databases an Adapter
can work on.
*/
type Dialect struct {
	// IDColumn is the definition of the primary key column of the samples table
	IDColumn string
	// Placeholder returns the parameter placeholder for the nth (1-based)
	// parameter of a statement
	Placeholder func(int) string
}

type adapter struct {
	db      *sql.DB
	dialect Dialect
}

/*
NewAdapter takes an open database and the dialect it speaks and returns
a dbdataset.Adapter that works on the database.
*/
func NewAdapter(db *sql.DB, dialect Dialect) dbdataset.Adapter {
	return &adapter{db, dialect}
}

func (a *adapter) ColumnName(featureName string) (string, error) {
	if featureName == "id" || featureName == labelColumn {
		return "", errors.Errorf(`'%s' is reserved and cannot be used as feature name`, featureName)
	}
	if strings.ContainsAny(featureName, `"`) {
		return "", errors.Errorf(`feature name '%s' contains invalid character '"'`, featureName)
	}
	return featureName, nil
}

func (a *adapter) CreateSampleTable(ctx context.Context, featureColumns []string) error {
	var createStmtBuf bytes.Buffer
	createStmtBuf.WriteString("CREATE TABLE IF NOT EXISTS samples(")
	createStmtBuf.WriteString(fmt.Sprintf(`"%s" INTEGER NOT NULL, `, labelColumn))
	for _, c := range featureColumns {
		createStmtBuf.WriteString(fmt.Sprintf(`"%s" INTEGER NOT NULL DEFAULT 0, `, c))
	}
	createStmtBuf.WriteString(fmt.Sprintf(`"id" %s)`, a.dialect.IDColumn))
	_, err := a.db.ExecContext(ctx, createStmtBuf.String())
	if err != nil {
		return errors.Wrap(err, "ensuring samples table exists")
	}
	return nil
}

func (a *adapter) AddSamples(ctx context.Context, rawSamples [][]int, featureColumns []string) (int, error) {
	if len(rawSamples) == 0 {
		return 0, nil
	}
	columns := make([]string, 0, len(featureColumns)+1)
	columns = append(columns, labelColumn)
	columns = append(columns, featureColumns...)
	var insertStmtStartBuffer bytes.Buffer
	insertStmtStartBuffer.WriteString(`INSERT INTO samples ("`)
	insertStmtStartBuffer.WriteString(strings.Join(columns, `", "`))
	insertStmtStartBuffer.WriteString(`") VALUES `)
	insertStmtStart := insertStmtStartBuffer.String()

	var insertStmt *sql.Stmt
	var stmtSize int
	defer func() {
		if insertStmt != nil {
			insertStmt.Close()
		}
	}()
	for chunkStart := 0; chunkStart < len(rawSamples); chunkStart += MaxSampleInsertionsPerStatement {
		chunkEnd := chunkStart + MaxSampleInsertionsPerStatement
		if chunkEnd > len(rawSamples) {
			chunkEnd = len(rawSamples)
		}
		chunk := rawSamples[chunkStart:chunkEnd]
		if insertStmt == nil || stmtSize != len(chunk) {
			if insertStmt != nil {
				insertStmt.Close()
			}
			var err error
			insertStmt, err = a.db.PrepareContext(ctx, insertStmtStart+a.valueTuples(len(chunk), len(columns)))
			if err != nil {
				return chunkStart, errors.Wrapf(err, "preparing insert command for %d samples", len(chunk))
			}
			stmtSize = len(chunk)
		}
		values := make([]interface{}, 0, len(chunk)*len(columns))
		for _, rs := range chunk {
			if len(rs) != len(columns) {
				return chunkStart, errors.Errorf("raw sample has %d values for %d columns", len(rs), len(columns))
			}
			for _, v := range rs {
				values = append(values, v)
			}
		}
		_, err := insertStmt.ExecContext(ctx, values...)
		if err != nil {
			return chunkStart, errors.Wrapf(err, "inserting samples %d to %d", chunkStart+1, chunkEnd)
		}
	}
	return len(rawSamples), nil
}

func (a *adapter) IterateOnSamples(ctx context.Context, criteria []*dbdataset.FeatureCriterion, featureColumns []string, lambda func(int, []int) (bool, error)) error {
	var queryBuffer bytes.Buffer
	queryBuffer.WriteString(fmt.Sprintf(`SELECT "%s"`, labelColumn))
	for _, c := range featureColumns {
		queryBuffer.WriteString(fmt.Sprintf(`, "%s"`, c))
	}
	queryBuffer.WriteString(` FROM samples`)
	whereClause, whereValues := a.buildWhereClause(criteria)
	queryBuffer.WriteString(whereClause)
	queryBuffer.WriteString(` ORDER BY "id"`)
	rows, err := a.db.QueryContext(ctx, queryBuffer.String(), whereValues...)
	if err != nil {
		return errors.Wrap(err, "querying samples")
	}
	defer rows.Close()
	for j := 0; rows.Next(); j++ {
		rawSample := make([]int, len(featureColumns)+1)
		values := make([]interface{}, len(rawSample))
		for i := range rawSample {
			values[i] = &rawSample[i]
		}
		err = rows.Scan(values...)
		if err != nil {
			return errors.Wrapf(err, "scanning sample %d", j+1)
		}
		ok, err := lambda(j, rawSample)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return rows.Err()
}

func (a *adapter) CountSamples(ctx context.Context, criteria []*dbdataset.FeatureCriterion) (int, error) {
	whereClause, whereValues := a.buildWhereClause(criteria)
	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM samples`+whereClause, whereValues...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "counting samples")
	}
	return count, nil
}

func (a *adapter) CountLabels(ctx context.Context, criteria []*dbdataset.FeatureCriterion) (map[int]int, error) {
	whereClause, whereValues := a.buildWhereClause(criteria)
	query := fmt.Sprintf(`SELECT "%s", COUNT(*) FROM samples%s GROUP BY "%s"`, labelColumn, whereClause, labelColumn)
	rows, err := a.db.QueryContext(ctx, query, whereValues...)
	if err != nil {
		return nil, errors.Wrap(err, "counting labels")
	}
	defer rows.Close()
	result := make(map[int]int)
	for rows.Next() {
		var label, count int
		err = rows.Scan(&label, &count)
		if err != nil {
			return nil, errors.Wrap(err, "counting labels")
		}
		result[label] = count
	}
	return result, rows.Err()
}

func (a *adapter) CountValueLabels(ctx context.Context, fc string, criteria []*dbdataset.FeatureCriterion) (map[int]map[int]int, error) {
	whereClause, whereValues := a.buildWhereClause(criteria)
	query := fmt.Sprintf(`SELECT "%s", "%s", COUNT(*) FROM samples%s GROUP BY "%s", "%s"`, fc, labelColumn, whereClause, fc, labelColumn)
	rows, err := a.db.QueryContext(ctx, query, whereValues...)
	if err != nil {
		return nil, errors.Wrapf(err, "counting labels per value of %s", fc)
	}
	defer rows.Close()
	result := make(map[int]map[int]int)
	for rows.Next() {
		var value, label, count int
		err = rows.Scan(&value, &label, &count)
		if err != nil {
			return nil, errors.Wrapf(err, "counting labels per value of %s", fc)
		}
		if result[value] == nil {
			result[value] = make(map[int]int)
		}
		result[value][label] = count
	}
	return result, rows.Err()
}

func (a *adapter) Close() error {
	return a.db.Close()
}

func (a *adapter) valueTuples(samples, columns int) string {
	var buf bytes.Buffer
	p := 1
	for i := 0; i < samples; i++ {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("(")
		for j := 0; j < columns; j++ {
			if j > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(a.dialect.Placeholder(p))
			p++
		}
		buf.WriteString(")")
	}
	return buf.String()
}

func (a *adapter) buildWhereClause(criteria []*dbdataset.FeatureCriterion) (string, []interface{}) {
	if len(criteria) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	values := make([]interface{}, 0, len(criteria))
	buf.WriteString(" WHERE ")
	for i, c := range criteria {
		if i > 0 {
			buf.WriteString(" AND ")
		}
		buf.WriteString(fmt.Sprintf(`"%s" = %s`, c.FeatureColumn, a.dialect.Placeholder(i+1)))
		values = append(values, c.Value)
	}
	return buf.String(), values
}
