// internal/workers/zones/query-zones/queries/zones.go
package queries

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"inmo-workers/internal/zones/capacity"
)

// ZoneList lists zones with optional province/municipality/status filters.
func ZoneList(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	var conditions []string
	var args []interface{}

	if province, ok := params["province"].(string); ok && province != "" {
		args = append(args, capacity.Normalize(province))
		conditions = append(conditions, "province_norm = $"+strconv.Itoa(len(args)))
	}
	if municipality, ok := params["municipality"].(string); ok && municipality != "" {
		args = append(args, capacity.Normalize(municipality))
		conditions = append(conditions, "municipality_norm = $"+strconv.Itoa(len(args)))
	}
	if status, ok := params["status"].(string); ok && status != "" {
		args = append(args, status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}

	query := `
		SELECT id, province, municipality, population, total_slots, occupied, free, status
		FROM zones`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY province, municipality"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var id, province, municipality, status string
		var population, totalSlots, occupied, free int
		if err := rows.Scan(&id, &province, &municipality, &population,
			&totalSlots, &occupied, &free, &status); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"zoneId":       id,
			"province":     province,
			"municipality": municipality,
			"population":   population,
			"totalSlots":   totalSlots,
			"occupied":     occupied,
			"free":         free,
			"status":       status,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}

// ZoneDetail returns one zone with its assigned franchisees.
func ZoneDetail(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	zoneID, ok := params["zoneId"].(string)
	if !ok || zoneID == "" {
		return nil, 0, 0, ErrMissingParam
	}

	start := time.Now()

	var id, province, municipality, district, level, status string
	var population, totalSlots, occupied, free int

	err := db.QueryRowContext(ctx, `
		SELECT id, province, municipality, district, level,
		       population, total_slots, occupied, free, status
		FROM zones
		WHERE id = $1`, zoneID).Scan(
		&id, &province, &municipality, &district, &level,
		&population, &totalSlots, &occupied, &free, &status,
	)
	if err != nil {
		return nil, 0, 0, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT franchisee_id, assigned_at
		FROM zone_assignments
		WHERE zone_id = $1
		ORDER BY franchisee_id`, zoneID)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var assignments []map[string]interface{}
	for rows.Next() {
		var franchiseeID, assignedAt string
		if err := rows.Scan(&franchiseeID, &assignedAt); err != nil {
			return nil, 0, 0, err
		}
		assignments = append(assignments, map[string]interface{}{
			"franchiseeId": franchiseeID,
			"assignedAt":   assignedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	result := map[string]interface{}{
		"zoneId":       id,
		"province":     province,
		"municipality": municipality,
		"district":     district,
		"level":        level,
		"population":   population,
		"totalSlots":   totalSlots,
		"occupied":     occupied,
		"free":         free,
		"status":       status,
		"assignments":  assignments,
	}

	execTime := time.Since(start).Milliseconds()
	return result, 1, execTime, nil
}

// ProvinceReport aggregates zone totals per province for the export report.
func ProvinceReport(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	start := time.Now()

	rows, err := db.QueryContext(ctx, `
		SELECT province,
		       COUNT(*),
		       COALESCE(SUM(population), 0),
		       COALESCE(SUM(total_slots), 0),
		       COALESCE(SUM(occupied), 0),
		       COALESCE(SUM(free), 0)
		FROM zones
		GROUP BY province
		ORDER BY province`)
	if err != nil {
		return nil, 0, 0, err
	}
	defer rows.Close()

	var results []map[string]interface{}
	for rows.Next() {
		var province string
		var municipios, habitantes, plazas, ocupadas, libres int
		if err := rows.Scan(&province, &municipios, &habitantes,
			&plazas, &ocupadas, &libres); err != nil {
			return nil, 0, 0, err
		}
		results = append(results, map[string]interface{}{
			"province":   province,
			"municipios": municipios,
			"habitantes": habitantes,
			"plazas":     plazas,
			"ocupadas":   ocupadas,
			"libres":     libres,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, 0, err
	}

	execTime := time.Since(start).Milliseconds()
	return results, len(results), execTime, nil
}
