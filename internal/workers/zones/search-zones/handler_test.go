// internal/workers/zones/search-zones/handler_test.go
package searchzones

import (
	"context"
	"testing"

	"inmo-workers/internal/common/errors"
	"inmo-workers/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func realElasticsearchClient(t *testing.T) *elasticsearch.Client {
	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
	})
	if err != nil {
		t.Skipf("Skipping test: failed to create Elasticsearch client: %v", err)
		return nil
	}

	res, err := esClient.Info()
	if err != nil {
		t.Skipf("Skipping test: Elasticsearch not responding: %v", err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		t.Skipf("Skipping test: Elasticsearch error: %s", res.String())
		return nil
	}
	return esClient
}

func TestExecuteRejectsUnknownQueryType(t *testing.T) {
	handler := NewHandler(LoadConfig(), nil, logger.NewTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		QueryType: "nonsense",
	})

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
}

func TestExecuteZoneSearchAgainstRealCluster(t *testing.T) {
	esClient := realElasticsearchClient(t)
	handler := NewHandler(LoadConfig(), esClient, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "zone_search",
		Filters:   map[string]interface{}{"keywords": "granada"},
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, output.TotalHits, int64(0))
}
