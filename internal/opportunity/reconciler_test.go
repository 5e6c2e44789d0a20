package opportunity

import (
	"context"
	"errors"
	"testing"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/pkg/logger"
)

func testSite() models.Site {
	return models.Site{ID: "site-1", BaseURL: "https://x.com", DeliveryType: "aem_edge"}
}

func TestFindOrCreateReusesActiveOpportunity(t *testing.T) {
	active := &MockOpportunity{
		IDVal:     "opp-active",
		SiteIDVal: "site-1",
		TypeVal:   models.OpportunityTypeAssistive,
		StatusVal: models.OpportunityStatusInProgress,
	}
	store := &MockStore{Opportunities: []Opportunity{
		// Terminal records of the same type are never reused.
		&MockOpportunity{IDVal: "opp-resolved", SiteIDVal: "site-1", TypeVal: models.OpportunityTypeAssistive, StatusVal: models.OpportunityStatusResolved},
		active,
	}}

	r := NewReconciler(store, logger.NewMockLogger())
	result, err := r.FindOrCreate(context.Background(), AssistiveInstance(), testSite(), "audit-2", "system")
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	if result.IsNew {
		t.Error("expected reuse, got new opportunity")
	}
	if result.Opportunity.ID() != "opp-active" {
		t.Errorf("reused %s, want opp-active", result.Opportunity.ID())
	}
	if active.AuditIDVal != "audit-2" {
		t.Errorf("auditId = %q, want rebound to audit-2", active.AuditIDVal)
	}
	if active.UpdatedByVal != "system" {
		t.Errorf("updatedBy = %q", active.UpdatedByVal)
	}
	if active.SaveCalls != 1 {
		t.Errorf("save calls = %d, want 1", active.SaveCalls)
	}
	if len(store.Created) != 0 {
		t.Error("no new record should be created while an active one exists")
	}
}

func TestFindOrCreateCreatesWhenNoneActive(t *testing.T) {
	store := &MockStore{Opportunities: []Opportunity{
		&MockOpportunity{IDVal: "opp-ignored", SiteIDVal: "site-1", TypeVal: models.OpportunityTypeAssistive, StatusVal: models.OpportunityStatusIgnored},
	}}

	r := NewReconciler(store, logger.NewMockLogger())
	result, err := r.FindOrCreate(context.Background(), AssistiveInstance(), testSite(), "audit-1", "system")
	if err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	if !result.IsNew {
		t.Fatal("expected a new opportunity")
	}
	if len(store.Created) != 1 {
		t.Fatalf("created %d records, want 1", len(store.Created))
	}

	fields := store.Created[0]
	if fields.Status != models.OpportunityStatusNew {
		t.Errorf("status = %s, want NEW", fields.Status)
	}
	if fields.AuditID != "audit-1" || fields.SiteID != "site-1" {
		t.Errorf("fields = %+v", fields)
	}

	// Tags run through the hardcoded-tag merge.
	wantFirst := "Accessibility"
	if len(fields.Tags) == 0 || fields.Tags[0] != wantFirst {
		t.Errorf("tags = %v, want %q first", fields.Tags, wantFirst)
	}
}

func TestFindOrCreateStoreFailuresAreFatal(t *testing.T) {
	r := NewReconciler(&MockStore{ListErr: errors.New("db down")}, logger.NewMockLogger())
	if _, err := r.FindOrCreate(context.Background(), AssistiveInstance(), testSite(), "a", "u"); err == nil {
		t.Error("list failure should propagate")
	}

	saveFail := &MockOpportunity{
		SiteIDVal: "site-1",
		TypeVal:   models.OpportunityTypeAssistive,
		StatusVal: models.OpportunityStatusNew,
		SaveErr:   errors.New("write failed"),
	}
	r = NewReconciler(&MockStore{Opportunities: []Opportunity{saveFail}}, logger.NewMockLogger())
	if _, err := r.FindOrCreate(context.Background(), AssistiveInstance(), testSite(), "a", "u"); err == nil {
		t.Error("save failure should propagate")
	}

	r = NewReconciler(&MockStore{CreateErr: errors.New("insert failed")}, logger.NewMockLogger())
	if _, err := r.FindOrCreate(context.Background(), AssistiveInstance(), testSite(), "a", "u"); err == nil {
		t.Error("create failure should propagate")
	}
}

func TestMergeTagsWithHardcodedTags(t *testing.T) {
	got := MergeTagsWithHardcodedTags(models.OpportunityTypeAssistive, []string{"a11y", "Accessibility"})
	want := []string{"Accessibility", "Assistive technology", "a11y"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tag %d = %q, want %q", i, got[i], want[i])
		}
	}

	// Unknown types keep the caller's tags untouched.
	got = MergeTagsWithHardcodedTags("unknown-type", []string{"x"})
	if len(got) != 1 || got[0] != "x" {
		t.Errorf("got %v", got)
	}
}
