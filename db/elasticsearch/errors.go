package elasticsearch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"hermannm.dev/wrap"
)

// Decodes the error body of a failed response, falling back to the status code when the body
// is not an Elasticsearch error.
func responseError(res *esapi.Response) error {
	var elasticErr types.ElasticsearchError
	if err := json.NewDecoder(res.Body).Decode(&elasticErr); err != nil ||
		elasticErr.ErrorCause.Type == "" {
		return fmt.Errorf("unexpected response status %d", res.StatusCode)
	}

	message := fmt.Sprintf("%s (status %d)", describeCause(elasticErr.ErrorCause), res.StatusCode)
	if len(elasticErr.ErrorCause.RootCause) == 0 {
		return errors.New(message)
	}

	rootCauses := make([]error, 0, len(elasticErr.ErrorCause.RootCause))
	for _, cause := range elasticErr.ErrorCause.RootCause {
		rootCauses = append(rootCauses, errors.New(describeCause(cause)))
	}
	return wrap.Errors(message, rootCauses...)
}

func describeCause(cause types.ErrorCause) string {
	if cause.Reason == nil || *cause.Reason == "" {
		return cause.Type
	}
	return fmt.Sprintf("%s [%s]", *cause.Reason, cause.Type)
}
