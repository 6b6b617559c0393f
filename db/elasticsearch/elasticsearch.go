package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/elastic/go-elasticsearch/v8"
	"hermannm.dev/webanalytics/config"
	"hermannm.dev/wrap"
)

const BackendName = "elasticsearch"

// Implements db.AggregateStatsQuerier against an index of website events, with session
// attributes stored on each event document. Other operations are not supported.
//
// Session counts come from a cardinality aggregation, so they are approximate for buckets with
// more than 40000 distinct sessions, unlike the exact counts of the SQL backends.
type ElasticsearchDB struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchDB(config config.Config) (ElasticsearchDB, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:         []string{config.Elasticsearch.Address},
		EnableDebugLogger: config.Elasticsearch.Debug,
	})
	if err != nil {
		return ElasticsearchDB{}, wrap.Error(err, "failed to create Elasticsearch client")
	}

	return ElasticsearchDB{client: client, index: config.Elasticsearch.Index}, nil
}

func (ElasticsearchDB) Name() string {
	return BackendName
}

// Sends a search request with the given body to the events index, and decodes the response
// into result.
func (elastic ElasticsearchDB) search(ctx context.Context, body object, result any) error {
	var requestBody bytes.Buffer
	if err := json.NewEncoder(&requestBody).Encode(body); err != nil {
		return wrap.Error(err, "failed to encode search request")
	}

	res, err := elastic.client.Search(
		elastic.client.Search.WithContext(ctx),
		elastic.client.Search.WithIndex(elastic.index),
		elastic.client.Search.WithBody(&requestBody),
	)
	if err != nil {
		return wrap.Error(err, "search request to Elasticsearch failed")
	}
	defer res.Body.Close()

	if res.IsError() {
		return wrap.Error(responseError(res), "Elasticsearch returned an error")
	}

	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return wrap.Error(err, "failed to decode Elasticsearch search response")
	}

	return nil
}
