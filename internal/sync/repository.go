package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roleviz/roleviz/internal/platform/db"
)

// ErrMissingParent marks a parent link whose parent role is not part of
// the current role set. The whole role transaction is rolled back.
var ErrMissingParent = errors.New("parent role not present")

const foreignKeyViolation = "23503"

// Repository provides PostgreSQL backed persistence for the role model.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the target tables when they do not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("sync: ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertRoles writes the role set and rebuilds the parent junction in a
// single transaction. Phase one upserts every role so that phase two can
// reference any of them; phase two replaces the junction wholesale.
func (r *Repository) UpsertRoles(ctx context.Context, roles []Role, watermark time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO viz_roles (dn, nrfRoleLevel, nrfLocalizedNames, nrfLocalizedDescrs, nrfRoleCategoryKey, created_at, updated_at, is_deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
			ON CONFLICT (dn) DO UPDATE SET
				nrfrolelevel = EXCLUDED.nrfrolelevel,
				nrflocalizednames = EXCLUDED.nrflocalizednames,
				nrflocalizeddescrs = EXCLUDED.nrflocalizeddescrs,
				nrfrolecategorykey = EXCLUDED.nrfrolecategorykey,
				updated_at = EXCLUDED.updated_at,
				is_deleted = FALSE
		`
		for _, role := range roles {
			_, err := tx.Exec(ctx, query,
				role.DN, role.Level, role.LocalizedNames, role.LocalizedDescrs, role.CategoryKey,
				watermark, watermark,
			)
			if err != nil {
				return fmt.Errorf("sync: upsert role %s: %w", role.DN, err)
			}
		}

		if _, err := tx.Exec(ctx, `DELETE FROM viz_roles_parents`); err != nil {
			return fmt.Errorf("sync: clear parent links: %w", err)
		}

		linkQuery := `
			INSERT INTO viz_roles_parents (child_dn, parent_dn)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`
		for _, role := range roles {
			for _, parentDN := range role.ParentDNs {
				if _, err := tx.Exec(ctx, linkQuery, role.DN, parentDN); err != nil {
					var pgErr *pgconn.PgError
					if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
						return fmt.Errorf("sync: link %s -> %s: %w: %s", role.DN, parentDN, ErrMissingParent, pgErr.Detail)
					}
					return fmt.Errorf("sync: link %s -> %s: %w", role.DN, parentDN, err)
				}
			}
		}
		return nil
	})
}

// UpsertResources writes the resource set in one transaction.
func (r *Repository) UpsertResources(ctx context.Context, resources []Resource, watermark time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO viz_resources (
				dn, nrfLocalizedNames, nrfLocalizedDescrs, nrfCategoryKey, nrfAllowMulti,
				entitlement_driver, entitlement_status, entitlement_xml, entitlement_xml_src,
				entitlement_xml_id, entitlement_xml_param_id, entitlement_xml_param_id2, entitlement_xml_param_id3,
				created_at, updated_at, is_deleted
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, FALSE)
			ON CONFLICT (dn) DO UPDATE SET
				nrflocalizednames = EXCLUDED.nrflocalizednames,
				nrflocalizeddescrs = EXCLUDED.nrflocalizeddescrs,
				nrfcategorykey = EXCLUDED.nrfcategorykey,
				nrfallowmulti = EXCLUDED.nrfallowmulti,
				entitlement_driver = EXCLUDED.entitlement_driver,
				entitlement_status = EXCLUDED.entitlement_status,
				entitlement_xml = EXCLUDED.entitlement_xml,
				entitlement_xml_src = EXCLUDED.entitlement_xml_src,
				entitlement_xml_id = EXCLUDED.entitlement_xml_id,
				entitlement_xml_param_id = EXCLUDED.entitlement_xml_param_id,
				entitlement_xml_param_id2 = EXCLUDED.entitlement_xml_param_id2,
				entitlement_xml_param_id3 = EXCLUDED.entitlement_xml_param_id3,
				updated_at = EXCLUDED.updated_at,
				is_deleted = FALSE
		`
		for _, res := range resources {
			_, err := tx.Exec(ctx, query,
				res.DN, res.LocalizedNames, res.LocalizedDescrs, res.CategoryKey, res.AllowMulti,
				res.Entitlement.Driver, res.Entitlement.Status, res.Entitlement.XML, res.Entitlement.Src,
				res.Entitlement.ID, res.Entitlement.ParamID, res.Entitlement.ParamID2, res.Entitlement.ParamID3,
				watermark, watermark,
			)
			if err != nil {
				return fmt.Errorf("sync: upsert resource %s: %w", res.DN, err)
			}
		}
		return nil
	})
}

// UpsertAssociations writes the association set in one transaction.
func (r *Repository) UpsertAssociations(ctx context.Context, assocs []Association, watermark time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO viz_roles_resources (
				dn, nrfRole, nrfResource, nrfDynamicParmVals, nrfdynamicparmvals_value_json, nrfStatus,
				createTimestamp, modifyTimestamp, created_at, updated_at, is_deleted
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
			ON CONFLICT (dn) DO UPDATE SET
				nrfrole = EXCLUDED.nrfrole,
				nrfresource = EXCLUDED.nrfresource,
				nrfdynamicparmvals = EXCLUDED.nrfdynamicparmvals,
				nrfdynamicparmvals_value_json = EXCLUDED.nrfdynamicparmvals_value_json,
				nrfstatus = EXCLUDED.nrfstatus,
				createTimestamp = EXCLUDED.createTimestamp,
				modifyTimestamp = EXCLUDED.modifyTimestamp,
				updated_at = EXCLUDED.updated_at,
				is_deleted = FALSE
		`
		for _, assoc := range assocs {
			_, err := tx.Exec(ctx, query,
				assoc.DN, assoc.RoleDN, assoc.ResourceDN, assoc.RawParams, assoc.ParamsJSON, assoc.Status,
				assoc.CreateTimestamp, assoc.ModifyTimestamp, watermark, watermark,
			)
			if err != nil {
				return fmt.Errorf("sync: upsert association %s: %w", assoc.DN, err)
			}
		}
		return nil
	})
}

// MarkStale flags every row of table not touched by the current run.
func (r *Repository) MarkStale(ctx context.Context, table string, watermark time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE `+table+` SET is_deleted = TRUE WHERE updated_at < $1`, watermark)
	if err != nil {
		return 0, fmt.Errorf("sync: mark stale in %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// PurgeDeleted removes rows of table that have stayed deleted past the
// retention cutoff.
func (r *Repository) PurgeDeleted(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE is_deleted = TRUE AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sync: purge %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}
