package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: the code, the unwrap
// chain and, when a postgres error sits in the chain, its diagnostics.
// Empty values are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	if len(chain) > 1 {
		fields["error_chain"] = chain
	}

	for k, v := range postgresFields(err) {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}

func postgresFields(err error) map[string]string {
	var pgxErr *pgconn.PgError
	if stdErrors.As(err, &pgxErr) {
		return map[string]string{
			"pg_code":       pgxErr.Code,
			"pg_constraint": pgxErr.ConstraintName,
			"pg_table":      pgxErr.TableName,
			"pg_detail":     pgxErr.Detail,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return map[string]string{
			"pg_code":       string(pqErr.Code),
			"pg_constraint": pqErr.Constraint,
			"pg_table":      pqErr.Table,
			"pg_detail":     pqErr.Detail,
		}
	}
	return nil
}
