package tests

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
	"tracehub/trace/schema"

	"github.com/shopspring/decimal"
)

func traceRecordBody(traceId, traceCode string, overrides map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"traceid":              traceId,
		"materialbatchno":      "MB20260101",
		"tracecode":            traceCode,
		"supplierid":           "SUP001",
		"purchaseorderid":      "PO001",
		"incominginspectionid": "IQC001",
		"storagelocation":      "warehouse-a",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

func countRows(t *testing.T, env *testEnv, model interface{}) int64 {
	var n int64
	if result := env.db.Model(model).Count(&n); result.Error != nil {
		t.Fatal(result.Error)
	}
	return n
}

func TestTraceRecordCreateDefaults(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	before := time.Now().UTC().Add(-time.Second)

	record, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", nil))
	if err != nil {
		t.Fatal(err)
	}

	if record.TraceId != "T1" || record.TraceCode != "C1" {
		t.Fatalf("invalid created record %+v", record)
	}
	if record.TraceStatus != schema.TraceStatusInStock {
		t.Fatalf("default tracestatus should be '%v', got '%v'", schema.TraceStatusInStock, record.TraceStatus)
	}
	if !record.RemainingQty.IsZero() {
		t.Fatalf("default remainingqty should be 0, got %v", record.RemainingQty)
	}
	if string(record.UsedRecords) != "[]" {
		t.Fatalf("default usedrecords should be an empty list, got %v", string(record.UsedRecords))
	}
	if record.ReceiveTime.Before(before) || record.ReceiveTime.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("default receivetime should be the creation time, got %v", record.ReceiveTime)
	}
}

func TestTraceRecordCreateExplicitFields(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	receiveTime := time.Date(2026, 1, 15, 8, 30, 0, 0, time.UTC)
	qty := decimal.NewFromFloat(120.50)

	record, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", map[string]interface{}{
		"receivetime":  receiveTime,
		"remainingqty": qty,
		"tracestatus":  schema.TraceStatusInUse,
		"usedrecords":  []map[string]interface{}{{"batch": "B1", "qty": 10}},
	}))
	if err != nil {
		t.Fatal(err)
	}

	if !record.ReceiveTime.Equal(receiveTime) {
		t.Fatalf("expected receivetime %v, got %v", receiveTime, record.ReceiveTime)
	}
	if !record.RemainingQty.Equal(qty) {
		t.Fatalf("expected remainingqty %v, got %v", qty, record.RemainingQty)
	}
	if record.TraceStatus != schema.TraceStatusInUse {
		t.Fatalf("expected tracestatus '%v', got '%v'", schema.TraceStatusInUse, record.TraceStatus)
	}
	if !strings.Contains(string(record.UsedRecords), "B1") {
		t.Fatalf("usedrecords not preserved: %v", string(record.UsedRecords))
	}
}

func TestTraceRecordDuplicates(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	if _, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", nil)); err != nil {
		t.Fatal(err)
	}

	// Same traceid, different tracecode.
	_, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C2", nil))
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("duplicate traceid should fail with 400, got %v", err)
	}

	// Different traceid, same tracecode.
	_, err = create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T2", "C1", nil))
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("duplicate tracecode should fail with 400, got %v", err)
	}

	if n := countRows(t, env, &schema.RawMaterialTraceRecord{}); n != 1 {
		t.Fatalf("failed creates must not persist rows, found %d", n)
	}
}

func TestTraceRecordGetAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	created, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", nil))
	if err != nil {
		t.Fatal(err)
	}

	anon := env.newClient()
	got, err := get[schema.RawMaterialTraceRecord](&anon, "/raw-material-trace/T1")
	if err != nil {
		t.Fatal(err)
	}
	if got.TraceId != created.TraceId || got.TraceCode != created.TraceCode || !got.RemainingQty.Equal(created.RemainingQty) {
		t.Fatalf("get returned %+v, expected %+v", got, created)
	}

	if _, err := get[schema.RawMaterialTraceRecord](&anon, "/raw-material-trace/missing"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("get of unknown traceid should fail with 404, got %v", err)
	}

	if err := deleteReq(&admin, "/raw-material-trace/T1"); err != nil {
		t.Fatal(err)
	}

	if _, err := get[schema.RawMaterialTraceRecord](&anon, "/raw-material-trace/T1"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("get after delete should fail with 404, got %v", err)
	}

	if err := deleteReq(&admin, "/raw-material-trace/T1"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("repeated delete should fail with 404, got %v", err)
	}
}

func TestTraceRecordListOrdering(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	// Inserted out of order on purpose.
	times := map[string]time.Time{
		"T1": time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		"T2": time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		"T3": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, traceId := range []string{"T1", "T2", "T3"} {
		body := traceRecordBody(traceId, fmt.Sprintf("C%d", i+1), map[string]interface{}{"receivetime": times[traceId]})
		if _, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", body); err != nil {
			t.Fatal(err)
		}
	}

	anon := env.newClient()
	records, err := get[[]schema.RawMaterialTraceRecord](&anon, "/raw-material-trace")
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 || records[0].TraceId != "T2" || records[1].TraceId != "T1" || records[2].TraceId != "T3" {
		t.Fatalf("list should be ordered by receivetime desc, got %+v", records)
	}

	// Ordering is stable across calls.
	again, err := get[[]schema.RawMaterialTraceRecord](&anon, "/raw-material-trace")
	if err != nil {
		t.Fatal(err)
	}
	for i := range records {
		if again[i].TraceId != records[i].TraceId {
			t.Fatalf("list ordering changed between calls: %+v vs %+v", records, again)
		}
	}
}

func TestTraceRecordValidation(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	cases := map[string]map[string]interface{}{
		"overlong traceid":      traceRecordBody(strings.Repeat("x", 33), "C1", nil),
		"missing materialbatch": traceRecordBody("T1", "C1", map[string]interface{}{"materialbatchno": ""}),
		"invalid tracestatus":   traceRecordBody("T1", "C1", map[string]interface{}{"tracestatus": "Vaporized"}),
		"negative remainingqty": traceRecordBody("T1", "C1", map[string]interface{}{"remainingqty": decimal.NewFromInt(-5)}),
	}

	for name, body := range cases {
		if _, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", body); statusOf(err) != http.StatusBadRequest {
			t.Fatalf("%v: should fail with 400, got %v", name, err)
		}
	}

	if n := countRows(t, env, &schema.RawMaterialTraceRecord{}); n != 0 {
		t.Fatalf("rejected creates must not persist rows, found %d", n)
	}
}

func TestTraceRecordFieldLengthsCountCharacters(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	// 20 multibyte characters fit a varchar(20) even though they are 60 bytes.
	batchNo := strings.Repeat("批", 20)
	record, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", map[string]interface{}{"materialbatchno": batchNo}))
	if err != nil {
		t.Fatal(err)
	}
	if record.MaterialBatchNo != batchNo {
		t.Fatalf("materialbatchno not preserved: %+v", record)
	}

	body := traceRecordBody("T2", "C2", map[string]interface{}{"materialbatchno": strings.Repeat("批", 21)})
	if _, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", body); statusOf(err) != http.StatusBadRequest {
		t.Fatalf("21 characters should fail with 400, got %v", err)
	}
}

func TestTraceRecordMutationAuth(t *testing.T) {
	env := setupTestEnv(t)

	anon := env.newClient()
	if _, err := create[schema.RawMaterialTraceRecord](&anon, "/raw-material-trace", traceRecordBody("T1", "C1", nil)); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create should fail with 401, got %v", err)
	}

	admin := env.adminClient(t)
	if _, err := create[schema.RawMaterialTraceRecord](&admin, "/raw-material-trace", traceRecordBody("T1", "C1", nil)); err != nil {
		t.Fatal(err)
	}

	user := env.newUser(t, "operator1")
	if err := deleteReq(&user, "/raw-material-trace/T1"); statusOf(err) != http.StatusForbidden {
		t.Fatalf("non-admin delete should fail with 403, got %v", err)
	}

	// The record is untouched after the rejected delete.
	if _, err := get[schema.RawMaterialTraceRecord](&anon, "/raw-material-trace/T1"); err != nil {
		t.Fatal(err)
	}
}
