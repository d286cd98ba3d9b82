package options

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-dialogform/pkg/model"
)

// Endpoint describes a JSON option endpoint. URL may contain the
// "{entityType}" placeholder, replaced with Request.EntityType. ResultsPath,
// ValueField and LabelField are gjson paths; an empty ResultsPath means the
// payload itself is the array.
type Endpoint struct {
	URL         string
	Method      string
	ResultsPath string
	ValueField  string
	LabelField  string
	Params      map[string]string
	// QueryParam carries Request.Query. Defaults to "q".
	QueryParam string
}

// HTTPLoader fetches options from an Endpoint.
type HTTPLoader struct {
	client   *http.Client
	endpoint Endpoint
}

// NewHTTPLoader validates endpoint and applies defaults.
func NewHTTPLoader(client *http.Client, endpoint Endpoint) (*HTTPLoader, error) {
	if strings.TrimSpace(endpoint.URL) == "" {
		return nil, errors.New("options: endpoint url required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint.Method == "" {
		endpoint.Method = http.MethodGet
	}
	endpoint.Method = strings.ToUpper(endpoint.Method)
	if endpoint.ValueField == "" {
		endpoint.ValueField = "id"
	}
	if endpoint.LabelField == "" {
		endpoint.LabelField = "label"
	}
	if endpoint.QueryParam == "" {
		endpoint.QueryParam = "q"
	}
	return &HTTPLoader{client: client, endpoint: endpoint}, nil
}

// Load performs the request and maps each result to an Option. Entries
// without a value are skipped; entries without a label use the value.
func (l *HTTPLoader) Load(ctx context.Context, req Request) ([]model.Option, error) {
	rawURL := strings.ReplaceAll(l.endpoint.URL, "{entityType}", url.PathEscape(req.EntityType))
	reqURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("options: parse url: %w", err)
	}
	q := reqURL.Query()
	for k, v := range l.endpoint.Params {
		q.Set(k, v)
	}
	for k, v := range req.Params {
		q.Set(k, v)
	}
	if strings.TrimSpace(req.Query) != "" {
		q.Set(l.endpoint.QueryParam, req.Query)
	}
	reqURL.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, l.endpoint.Method, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("options: request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("options: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("options: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("options: read body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("options: invalid json payload")
	}
	return l.extract(body), nil
}

func (l *HTTPLoader) extract(body []byte) []model.Option {
	results := gjson.ParseBytes(body)
	if l.endpoint.ResultsPath != "" {
		results = results.Get(l.endpoint.ResultsPath)
	}
	if !results.IsArray() {
		return nil
	}

	var out []model.Option
	results.ForEach(func(_, item gjson.Result) bool {
		value := strings.TrimSpace(item.Get(l.endpoint.ValueField).String())
		if value == "" {
			return true
		}
		label := strings.TrimSpace(item.Get(l.endpoint.LabelField).String())
		if label == "" {
			label = value
		}
		out = append(out, model.Option{ID: value, Label: label})
		return true
	})
	return out
}
