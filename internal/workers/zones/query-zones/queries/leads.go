// internal/workers/zones/query-zones/queries/leads.go
package queries

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"inmo-workers/internal/zones/capacity"
)

// LeadList lists leads with optional province/status/assignedTo filters.
func LeadList(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	var conditions []string
	var args []interface{}

	if province, ok := params["province"].(string); ok && province != "" {
		args = append(args, capacity.Normalize(province))
		conditions = append(conditions, "LOWER(TRIM(province)) = $"+strconv.Itoa(len(args)))
	}
	if status, ok := params["status"].(string); ok && status != "" {
		args = append(args, status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if assignedTo, ok := params["assignedTo"].(string); ok && assignedTo != "" {
		args = append(args, assignedTo)
		conditions = append(conditions, "assigned_to = $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT id, lead_ref, kind, province, municipality, name, phone,
		       COALESCE(email, ''), COALESCE(assigned_to, ''), status, created_at
		FROM leads`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, leadRef, kind, province, municipality, name, phone, email, assignedTo, status, createdAt string
		if err := rows.Scan(&id, &leadRef, &kind, &province, &municipality,
			&name, &phone, &email, &assignedTo, &status, &createdAt); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"leadId":       id,
			"leadRef":      leadRef,
			"kind":         kind,
			"province":     province,
			"municipality": municipality,
			"name":         name,
			"phone":        phone,
			"email":        email,
			"assignedTo":   assignedTo,
			"status":       status,
			"createdAt":    createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}
