package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oficiosya/subscription-engine/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Custom types must exist before auto-migrate touches the columns.
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.Organization{},
		&model.Subscription{},
		&model.SubscriptionPayment{},
		&model.SubscriptionEvent{},
		&model.VerificationRequirement{},
		&model.VerificationSubmission{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	if err := seedRequirementCatalog(db, logger); err != nil {
		logger.Error("Failed to seed requirement catalog", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// createCustomTypes creates custom PostgreSQL types
func createCustomTypes(db *gorm.DB) error {
	var exists bool
	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'subscription_status')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE subscription_status AS ENUM ('trialing', 'active', 'expired', 'cancelled')`).Error; err != nil {
			return err
		}
	}

	db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'block_type')`).Scan(&exists)
	if !exists {
		if err := db.Exec(`CREATE TYPE block_type AS ENUM ('soft_block', 'hard_block')`).Error; err != nil {
			return err
		}
	}

	return nil
}

// createCustomIndexes creates indexes GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// At most one open subscription per organization.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_open_subscription_per_org
		ON subscriptions (organization_id) WHERE status IN ('trialing', 'active')`).Error; err != nil {
		return err
	}

	// The block cron scans expired, unblocked organizations.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_orgs_expired_unblocked
		ON organizations (trial_ends_at) WHERE subscription_status = 'expired' AND block_type IS NULL`).Error; err != nil {
		return err
	}

	// Escalation scans stale soft blocks.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_orgs_soft_blocked
		ON organizations (blocked_at) WHERE block_type = 'soft_block'`).Error; err != nil {
		return err
	}

	// One active submission per (organization, requirement) for org-scope docs.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_active_org_submission
		ON verification_submissions (organization_id, requirement_id)
		WHERE status IN ('in_review', 'approved') AND user_id IS NULL`).Error; err != nil {
		return err
	}

	return nil
}

// seedRequirementCatalog upserts the built-in verification catalog. Codes are
// stable; reruns update names and flags in place.
func seedRequirementCatalog(db *gorm.DB, logger *zap.Logger) error {
	strPtr := func(s string) *string { return &s }

	catalog := []model.VerificationRequirement{
		{Code: "dni_titular", Name: "DNI del titular", Tier: model.RequirementTierMandatory, IsRequired: true, AppliesTo: model.RequirementScopeOrganization, IsActive: true},
		{Code: "constancia_cuit", Name: "Constancia de CUIT/CUIL", Tier: model.RequirementTierMandatory, IsRequired: true, AppliesTo: model.RequirementScopeOrganization, IsActive: true},
		{Code: "comprobante_domicilio", Name: "Comprobante de domicilio", Tier: model.RequirementTierMandatory, IsRequired: true, AppliesTo: model.RequirementScopeOrganization, IsActive: true},
		{Code: "dni_empleado", Name: "DNI del empleado", Tier: model.RequirementTierMandatory, IsRequired: true, AppliesTo: model.RequirementScopeUser, IsActive: true},
		{Code: "matricula_gas", Name: "Matrícula de gasista", Tier: model.RequirementTierCredential, AppliesTo: model.RequirementScopeOrganization, IsActive: true, BadgeCode: strPtr("gasista_matriculado"), BadgeName: strPtr("Gasista Matriculado")},
		{Code: "matricula_electricista", Name: "Matrícula de electricista", Tier: model.RequirementTierCredential, AppliesTo: model.RequirementScopeOrganization, IsActive: true, BadgeCode: strPtr("electricista_matriculado"), BadgeName: strPtr("Electricista Matriculado")},
		{Code: "seguro_responsabilidad", Name: "Seguro de responsabilidad civil", Tier: model.RequirementTierCredential, AppliesTo: model.RequirementScopeOrganization, IsActive: true, BadgeCode: strPtr("asegurado"), BadgeName: strPtr("Asegurado")},
	}

	for i := range catalog {
		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "tier", "is_required", "applies_to", "badge_code", "badge_name",
			}),
		}).Create(&catalog[i]).Error
		if err != nil {
			return err
		}
	}

	logger.Info("Requirement catalog seeded", zap.Int("requirements", len(catalog)))
	return nil
}
