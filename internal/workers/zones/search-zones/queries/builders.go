// internal/workers/zones/search-zones/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// ZoneSearch defines the structure of a search request against the zone index.
type ZoneSearch struct {
	Index      string
	QueryType  string
	Filters    map[string]interface{}
	Province   string
	Pagination struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type and filters.
func BuildQuery(esClient *elasticsearch.Client, zs ZoneSearch) (*esapi.SearchRequest, error) {
	if zs.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch zs.QueryType {
	case "zone_search":
		queryBody = buildZoneSearchQuery(zs)
	case "available_zones":
		queryBody = buildAvailableZonesQuery(zs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, zs.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index:  []string{zs.Index},
		Body:   strings.NewReader(string(body)),
		From:   &zs.Pagination.From,
		Size:   &zs.Pagination.Size,
		Pretty: true,
	}

	return &req, nil
}

// buildZoneSearchQuery builds the free-text zone search query dynamically.
func buildZoneSearchQuery(zs ZoneSearch) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if keywords, ok := zs.Filters["keywords"].(string); ok && keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"municipality^3", "province^2", "district"},
				"type":   "best_fields",
			},
		})
	}

	if province, ok := zs.Filters["province"].(string); ok && province != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"province_norm": strings.ToLower(strings.TrimSpace(province))},
		})
	} else if zs.Province != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"province_norm": strings.ToLower(strings.TrimSpace(zs.Province))},
		})
	}

	if status, ok := zs.Filters["status"].(string); ok && status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	if popRange, ok := zs.Filters["populationRange"].(map[string]interface{}); ok {
		rangeClause := map[string]interface{}{}
		if min, ok := toFloat(popRange["min"]); ok && min > 0 {
			rangeClause["gte"] = min
		}
		if max, ok := toFloat(popRange["max"]); ok && max > 0 {
			rangeClause["lte"] = max
		}
		if len(rangeClause) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{"population": rangeClause},
			})
		}
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	if sortBy, ok := zs.Filters["sortBy"].(string); ok {
		switch sortBy {
		case "population":
			query["sort"] = []interface{}{
				map[string]interface{}{"population": map[string]interface{}{"order": "desc"}},
			}
		case "free":
			query["sort"] = []interface{}{
				map[string]interface{}{"free": map[string]interface{}{"order": "desc"}},
			}
		}
	}

	return query
}

// buildAvailableZonesQuery returns zones with at least one free slot, most
// free slots first. Used by the franchise sales funnel.
func buildAvailableZonesQuery(zs ZoneSearch) map[string]interface{} {
	filterClauses := []interface{}{
		map[string]interface{}{
			"range": map[string]interface{}{
				"free": map[string]interface{}{"gte": 1},
			},
		},
	}

	if zs.Province != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"province_norm": strings.ToLower(strings.TrimSpace(zs.Province))},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}},
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"free": map[string]interface{}{"order": "desc"}},
		},
	}
}

func toFloat(raw interface{}) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
