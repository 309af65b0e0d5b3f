package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpCollectsPGDiagnosticsFromEitherDriver(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_coupons_code_hash", TableName: "coupons", Message: "duplicate key"}
	dump := Dump(Wrap(CodeConflict, fmt.Errorf("insert coupon: %w", pgxErr), "coupon code already exists"))

	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %q", dump.Code)
	}
	if dump.PG.Code != "23505" || dump.PG.Constraint != "ux_coupons_code_hash" || dump.PG.Table != "coupons" {
		t.Fatalf("unexpected pg diagnostics %+v", dump.PG)
	}
	if len(dump.Chain) < 3 {
		t.Fatalf("expected the whole chain, got %v", dump.Chain)
	}

	pqDump := Dump(&pq.Error{Code: "23503", Constraint: "fk_orders_user", Table: "orders"})
	if pqDump.PG.Code != "23503" || pqDump.PG.Constraint != "fk_orders_user" {
		t.Fatalf("unexpected pq diagnostics %+v", pqDump.PG)
	}
}

func TestDumpFieldsOmitEmptyValues(t *testing.T) {
	fields := Dump(stdErrors.New("cart is empty")).Fields()
	if fields["error"] != "cart is empty" {
		t.Fatalf("missing error field: %v", fields)
	}
	for _, key := range []string{"error_code", "error_chain", "pg_code", "pg_constraint"} {
		if _, ok := fields[key]; ok {
			t.Fatalf("unexpected %s in %v", key, fields)
		}
	}

	fields = Dump(&pgconn.PgError{Code: "40001"}).Fields()
	if fields["pg_code"] != "40001" {
		t.Fatalf("expected pg_code, got %v", fields)
	}
	if len(Dump(nil).Fields()) != 1 {
		t.Fatalf("nil error dump should only carry the empty message")
	}
}
