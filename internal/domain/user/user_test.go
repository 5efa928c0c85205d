package user

import (
	"testing"
	"time"
)

func TestPatch_Apply(t *testing.T) {
	u := &User{ID: 1, Name: "Jane Doe", Age: 28, Email: "jane.doe@example.com"}
	name := "Jane Smith"
	age := 29
	dt := time.Date(2024, 10, 23, 14, 30, 0, 0, time.UTC)

	p := Patch{Name: &name, Age: &age, DateTime: &dt}
	if p.IsEmpty() {
		t.Fatal("Expected patch to be non-empty")
	}
	p.Apply(u)

	if u.Name != "Jane Smith" || u.Age != 29 {
		t.Errorf("Unexpected user after patch: %+v", u)
	}
	if u.Email != "jane.doe@example.com" {
		t.Errorf("Expected email to be unchanged, got %s", u.Email)
	}
	if u.DateTime == nil || !u.DateTime.Equal(dt) {
		t.Errorf("Expected datetime %s, got %v", dt, u.DateTime)
	}

	dt = dt.Add(time.Hour)
	if u.DateTime.Equal(dt) {
		t.Error("Expected Apply to copy the datetime, not alias it")
	}
}

func TestPatch_IsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Error("Expected zero patch to be empty")
	}
}

func TestListQuery_EffectiveLimit(t *testing.T) {
	if got := (ListQuery{}).EffectiveLimit(); got != DefaultListLimit {
		t.Errorf("Expected %d, got %d", DefaultListLimit, got)
	}
	if got := (ListQuery{Limit: 20}).EffectiveLimit(); got != 20 {
		t.Errorf("Expected 20, got %d", got)
	}
}
