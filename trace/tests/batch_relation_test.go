package tests

import (
	"fmt"
	"net/http"
	"testing"
	"time"
	"tracehub/trace/schema"
)

func relationBody(relationId, productTraceCode, materialTraceCode string, overrides map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"relationid":         relationId,
		"productbatchno":     "PB20260101",
		"producttracecode":   productTraceCode,
		"materialtracecode":  materialTraceCode,
		"equipmentid":        "EQ001",
		"processschemeid":    "PS001",
		"inspectionpersonid": "QC001",
		"relationstage":      "assembly",
	}
	for k, v := range overrides {
		body[k] = v
	}
	return body
}

// seedTraceRecord creates a raw material trace record that relations can
// reference.
func seedTraceRecord(t *testing.T, admin *client, traceId, traceCode string) {
	if _, err := create[schema.RawMaterialTraceRecord](admin, "/raw-material-trace", traceRecordBody(traceId, traceCode, nil)); err != nil {
		t.Fatal(err)
	}
}

func TestRelationCreateDefaults(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	before := time.Now().UTC().Add(-time.Second)

	relation, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R1", "P1", "C1", nil))
	if err != nil {
		t.Fatal(err)
	}

	if relation.RelationId != "R1" || relation.ProductTraceCode != "P1" || relation.MaterialTraceCode != "C1" {
		t.Fatalf("invalid created relation %+v", relation)
	}
	if relation.RelationStatus != schema.RelationStatusValid {
		t.Fatalf("default relationstatus should be '%v', got '%v'", schema.RelationStatusValid, relation.RelationStatus)
	}
	if relation.InspectionTime.Before(before) || relation.InspectionTime.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("default inspectiontime should be the creation time, got %v", relation.InspectionTime)
	}
}

func TestRelationRequiresKnownMaterial(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)

	_, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R1", "P1", "no-such-code", nil))
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("relation referencing unknown tracecode should fail with 400, got %v", err)
	}

	if n := countRows(t, env, &schema.BatchTraceRelation{}); n != 0 {
		t.Fatalf("rejected relation must not persist rows, found %d", n)
	}
}

func TestRelationDuplicates(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	if _, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R1", "P1", "C1", nil)); err != nil {
		t.Fatal(err)
	}

	_, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R1", "P2", "C1", nil))
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("duplicate relationid should fail with 400, got %v", err)
	}

	_, err = create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R2", "P1", "C1", nil))
	if statusOf(err) != http.StatusBadRequest {
		t.Fatalf("duplicate producttracecode should fail with 400, got %v", err)
	}

	if n := countRows(t, env, &schema.BatchTraceRelation{}); n != 1 {
		t.Fatalf("failed creates must not persist rows, found %d", n)
	}
}

func TestRelationGetAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	created, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", relationBody("R1", "P1", "C1", nil))
	if err != nil {
		t.Fatal(err)
	}

	anon := env.newClient()
	got, err := get[schema.BatchTraceRelation](&anon, "/batch-trace-relations/R1")
	if err != nil {
		t.Fatal(err)
	}
	if got.RelationId != created.RelationId || got.ProductTraceCode != created.ProductTraceCode {
		t.Fatalf("get returned %+v, expected %+v", got, created)
	}

	if err := deleteReq(&admin, "/batch-trace-relations/R1"); err != nil {
		t.Fatal(err)
	}

	if _, err := get[schema.BatchTraceRelation](&anon, "/batch-trace-relations/R1"); statusOf(err) != http.StatusNotFound {
		t.Fatalf("get after delete should fail with 404, got %v", err)
	}
}

func TestRelationListOrdering(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	times := map[string]time.Time{
		"R1": time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		"R2": time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		"R3": time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC),
	}
	for i, relationId := range []string{"R1", "R2", "R3"} {
		body := relationBody(relationId, fmt.Sprintf("P%d", i+1), "C1", map[string]interface{}{"inspectiontime": times[relationId]})
		if _, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", body); err != nil {
			t.Fatal(err)
		}
	}

	anon := env.newClient()
	relations, err := get[[]schema.BatchTraceRelation](&anon, "/batch-trace-relations")
	if err != nil {
		t.Fatal(err)
	}

	if len(relations) != 3 || relations[0].RelationId != "R3" || relations[1].RelationId != "R1" || relations[2].RelationId != "R2" {
		t.Fatalf("list should be ordered by inspectiontime desc, got %+v", relations)
	}
}

func TestRelationValidation(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	cases := map[string]map[string]interface{}{
		"missing relationid":     relationBody("", "P1", "C1", nil),
		"missing equipmentid":    relationBody("R1", "P1", "C1", map[string]interface{}{"equipmentid": ""}),
		"invalid relationstatus": relationBody("R1", "P1", "C1", map[string]interface{}{"relationstatus": "Broken"}),
	}

	for name, body := range cases {
		if _, err := create[schema.BatchTraceRelation](&admin, "/batch-trace-relations", body); statusOf(err) != http.StatusBadRequest {
			t.Fatalf("%v: should fail with 400, got %v", name, err)
		}
	}
}

func TestRelationMutationAuth(t *testing.T) {
	env := setupTestEnv(t)
	admin := env.adminClient(t)
	seedTraceRecord(t, &admin, "T1", "C1")

	anon := env.newClient()
	if _, err := create[schema.BatchTraceRelation](&anon, "/batch-trace-relations", relationBody("R1", "P1", "C1", nil)); statusOf(err) != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create should fail with 401, got %v", err)
	}

	user := env.newUser(t, "operator1")
	if _, err := create[schema.BatchTraceRelation](&user, "/batch-trace-relations", relationBody("R1", "P1", "C1", nil)); statusOf(err) != http.StatusForbidden {
		t.Fatalf("non-admin create should fail with 403, got %v", err)
	}
}
