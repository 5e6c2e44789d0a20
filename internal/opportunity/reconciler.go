package opportunity

import (
	"context"
	"fmt"

	"github.com/a11ykit/remedia/internal/models"
	"github.com/a11ykit/remedia/pkg/logger"
)

// Reconciler finds or creates the one active opportunity per (site, type).
type Reconciler struct {
	store Store
	log   logger.Logger
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store Store, log logger.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// ReconcileResult reports the opportunity a pass settled on and whether it
// had to be created.
type ReconcileResult struct {
	Opportunity Opportunity
	IsNew       bool
}

// FindOrCreate selects the first active opportunity of the instance's type
// for the site, rebinds it to the current audit and persists it. When none
// is active it creates a fresh record from the template. A store failure on
// either path is fatal for the whole reconciliation; create/update is a
// single call so no partial opportunity state is left behind.
func (r *Reconciler) FindOrCreate(ctx context.Context, instance Instance, site models.Site, auditID, updatedBy string) (*ReconcileResult, error) {
	existing, err := r.store.AllBySiteID(ctx, site.ID)
	if err != nil {
		return nil, fmt.Errorf("listing opportunities for site %s: %w", site.ID, err)
	}

	for _, opp := range existing {
		if opp.Type() != instance.Type || !opp.Status().IsActive() {
			continue
		}

		opp.SetAuditID(auditID)
		opp.SetUpdatedBy(updatedBy)
		if err := opp.Save(ctx); err != nil {
			return nil, fmt.Errorf("updating opportunity %s: %w", opp.ID(), err)
		}

		r.log.Debug("Reusing active opportunity",
			"opportunity", opp.ID(), "type", instance.Type, "status", opp.Status())
		return &ReconcileResult{Opportunity: opp, IsNew: false}, nil
	}

	fields := models.OpportunityFields{
		SiteID:      site.ID,
		AuditID:     auditID,
		Type:        instance.Type,
		Origin:      instance.Origin,
		Title:       instance.Title,
		Description: instance.Description,
		Status:      models.OpportunityStatusNew,
		Tags:        MergeTagsWithHardcodedTags(instance.Type, instance.Tags),
		Data:        instance.Data,
		UpdatedBy:   updatedBy,
	}

	opp, err := r.store.Create(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("creating opportunity for site %s: %w", site.ID, err)
	}

	r.log.Info("Created opportunity", "opportunity", opp.ID(), "type", instance.Type)
	return &ReconcileResult{Opportunity: opp, IsNew: true}, nil
}
