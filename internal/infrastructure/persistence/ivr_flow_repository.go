package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nexora/backend/internal/domain/models"
	"github.com/nexora/backend/internal/domain/ports"
	"github.com/nexora/backend/internal/infrastructure/database"
	"github.com/nexora/backend/pkg/constants"
	appErrors "github.com/nexora/backend/pkg/errors"
	"github.com/nexora/backend/pkg/utils"
)

const resourceFlow = "IVR flow"

var flowColumns = strings.Join([]string{
	constants.FieldID,
	constants.FieldTenantID,
	constants.FieldName,
	constants.FieldIsActive,
	constants.FieldNodes,
	constants.FieldVersion,
	constants.FieldCreatedDate,
	constants.FieldLastModifiedDate,
}, ", ")

var (
	getFlowQuery = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		flowColumns, constants.TableIVRFlow, constants.FieldTenantID, constants.FieldID)

	listFlowsQuery = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC, %s ASC",
		flowColumns, constants.TableIVRFlow, constants.FieldTenantID, constants.FieldName, constants.FieldID)

	insertFlowQuery = fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		constants.TableIVRFlow, flowColumns)

	updateFlowQuery = fmt.Sprintf("UPDATE %s SET %s = ?, %s = ?, %s = ?, %s = ?, %s = ? WHERE %s = ? AND %s = ? AND %s = ?",
		constants.TableIVRFlow,
		constants.FieldName, constants.FieldIsActive, constants.FieldNodes, constants.FieldVersion, constants.FieldLastModifiedDate,
		constants.FieldTenantID, constants.FieldID, constants.FieldVersion)

	currentVersionQuery = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		constants.FieldVersion, constants.TableIVRFlow, constants.FieldTenantID, constants.FieldID)

	createdDateQuery = fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? AND %s = ?",
		constants.FieldCreatedDate, constants.TableIVRFlow, constants.FieldTenantID, constants.FieldID)

	deleteFlowQuery = fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		constants.TableIVRFlow, constants.FieldTenantID, constants.FieldID)
)

// IVRFlowRepository stores flows as one row per document with the node list
// serialized as JSON.
type IVRFlowRepository struct {
	db *database.Connection
	tm *TransactionManager
}

var _ ports.IVRFlowRepository = (*IVRFlowRepository)(nil)

// NewIVRFlowRepository creates a new IVRFlowRepository
func NewIVRFlowRepository(db *database.Connection) *IVRFlowRepository {
	return &IVRFlowRepository{db: db, tm: NewTransactionManager(db)}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFlow(row rowScanner) (*models.IVRFlow, error) {
	var (
		flow  models.IVRFlow
		nodes string
	)
	if err := row.Scan(
		&flow.ID,
		&flow.TenantID,
		&flow.Name,
		&flow.IsActive,
		&nodes,
		&flow.Version,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(nodes), &flow.Nodes); err != nil {
		return nil, fmt.Errorf("corrupt nodes for flow %s: %w", flow.ID, err)
	}
	if flow.Nodes == nil {
		flow.Nodes = []models.IVRNode{}
	}
	return &flow, nil
}

func encodeNodes(nodes []models.IVRNode) (string, error) {
	if nodes == nil {
		nodes = []models.IVRNode{}
	}
	b, err := json.Marshal(nodes)
	if err != nil {
		return "", fmt.Errorf("failed to encode nodes: %w", err)
	}
	return string(b), nil
}

func (r *IVRFlowRepository) Get(ctx context.Context, tenantID, id string) (*models.IVRFlow, error) {
	flow, err := scanFlow(r.db.QueryRowContext(ctx, getFlowQuery, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFoundError(resourceFlow, id)
		}
		return nil, classify("get flow", err)
	}
	return flow, nil
}

func (r *IVRFlowRepository) List(ctx context.Context, tenantID string) ([]models.IVRFlowSummary, error) {
	rows, err := r.db.QueryContext(ctx, listFlowsQuery, tenantID)
	if err != nil {
		return nil, classify("list flows", err)
	}
	defer rows.Close()

	summaries := []models.IVRFlowSummary{}
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, classify("list flows", err)
		}
		summaries = append(summaries, flow.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list flows", err)
	}
	return summaries, nil
}

// Create stores flow at version 1 and fills in its timestamps.
func (r *IVRFlowRepository) Create(ctx context.Context, flow *models.IVRFlow) error {
	nodes, err := encodeNodes(flow.Nodes)
	if err != nil {
		return err
	}

	now := utils.NowMillis()
	_, err = r.db.ExecContext(ctx, insertFlowQuery,
		flow.ID,
		flow.TenantID,
		flow.Name,
		flow.IsActive,
		nodes,
		int64(1),
		now,
		now,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return appErrors.NewConflictError(resourceFlow, constants.FieldID, flow.ID)
		}
		return classify("create flow", err)
	}

	flow.Version = 1
	flow.CreatedAt = now
	flow.UpdatedAt = now
	return nil
}

// Update is a compare-and-swap on the version column. On success flow carries
// the new version and the stored creation time.
func (r *IVRFlowRepository) Update(ctx context.Context, flow *models.IVRFlow, expectedVersion int64) error {
	nodes, err := encodeNodes(flow.Nodes)
	if err != nil {
		return err
	}

	now := utils.NowMillis()
	next := expectedVersion + 1
	var created int64

	err = r.tm.WithTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateFlowQuery,
			flow.Name, flow.IsActive, nodes, next, now,
			flow.TenantID, flow.ID, expectedVersion)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 1 {
			return tx.QueryRowContext(ctx, createdDateQuery, flow.TenantID, flow.ID).Scan(&created)
		}

		var actual int64
		if err := tx.QueryRowContext(ctx, currentVersionQuery, flow.TenantID, flow.ID).Scan(&actual); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.NewNotFoundError(resourceFlow, flow.ID)
			}
			return err
		}
		return appErrors.NewVersionConflictError(resourceFlow, expectedVersion, actual)
	})
	if err != nil {
		return classify("update flow", err)
	}

	flow.Version = next
	flow.CreatedAt = created
	flow.UpdatedAt = now
	return nil
}

func (r *IVRFlowRepository) Delete(ctx context.Context, tenantID, id string) error {
	res, err := r.db.ExecContext(ctx, deleteFlowQuery, tenantID, id)
	if err != nil {
		return classify("delete flow", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify("delete flow", err)
	}
	if affected == 0 {
		return appErrors.NewNotFoundError(resourceFlow, id)
	}
	return nil
}
