package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"tuition-pricing-service/internal/apperror"
	"tuition-pricing-service/internal/entity"
)

type TaxRepository struct {
	db *sqlx.DB
}

func NewTaxRepository(db *sqlx.DB) *TaxRepository {
	return &TaxRepository{db}
}

// GetActiveConfigurations returns active configurations that have not expired at the given
// instant, ordered by sort_order then code. Configurations that only start later are included
// so a cached set stays usable; callers check EffectiveAt.
func (r *TaxRepository) GetActiveConfigurations(ctx context.Context, at time.Time) ([]entity.TaxConfiguration, error) {
	query := `
		SELECT id, name, type, rate, code, valid_from, valid_to, is_active, sort_order, is_inclusive, description
		FROM tax_configurations
		WHERE is_active = TRUE AND (valid_to IS NULL OR valid_to > ?)
		ORDER BY sort_order, code`

	at = at.UTC()
	var configs []entity.TaxConfiguration
	if err := r.db.SelectContext(ctx, &configs, r.db.Rebind(query), at); err != nil {
		return nil, errors.Wrap(err, "selecting tax configurations")
	}
	for _, c := range configs {
		if err := c.Check(); err != nil {
			return nil, apperror.NewDependencyError(err, "invalid tax configuration row")
		}
	}
	return configs, nil
}
