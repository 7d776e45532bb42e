package pxweb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/statsync/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(&config.APIConfig{
		BaseURL:               srv.URL,
		Locale:                "sv",
		RequestTimeoutSeconds: 5,
	})
	return client, srv
}

func TestList(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"BE0101","type":"l","text":"Population statistics"},
			{"id":"BefolkningNy","type":"t","text":"Population by region"}
		]`))
	}))

	items, err := client.List(context.Background(), []string{"BE"})
	require.NoError(t, err)

	assert.Equal(t, "/sv/ssd/BE", gotPath)
	require.Len(t, items, 2)
	assert.True(t, items[0].IsBranch())
	assert.True(t, items[1].IsTable())
	assert.Equal(t, "Population by region", items[1].Text)
}

func TestListNon200(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.List(context.Background(), []string{"BE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMetadata(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "Population by region and year",
			"variables": [
				{"code":"Region","text":"region","valueTexts":["Stockholm","Uppsala"]},
				{"code":"Tid","text":"år","valueTexts":["2022","2023"]}
			]
		}`))
	}))

	meta, err := client.Metadata(context.Background(), []string{"BE", "BE0101", "BefolkningNy"})
	require.NoError(t, err)

	assert.Equal(t, "Population by region and year", meta.Title)
	require.Len(t, meta.Variables, 2)
	assert.Equal(t, []string{"Stockholm", "Uppsala"}, meta.Variables[0].ValueTexts)
}

func TestQuerySendsOrderedItemFilters(t *testing.T) {
	var body queryRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"columns":[
				{"code":"Region","text":"region","type":"d"},
				{"code":"Tid","text":"år","type":"t"},
				{"code":"BE0101N1","text":"Folkmängd","type":"c"}
			],
			"data":[{"key":["Stockholm","2023"],"values":["984748"]}]
		}`))
	}))

	sel := orderedmap.NewOrderedMap[string, []string]()
	sel.Set("Region", []string{"Stockholm"})
	sel.Set("Tid", []string{"2023"})

	data, err := client.Query(context.Background(), []string{"BE", "BE0101", "BefolkningNy"}, sel)
	require.NoError(t, err)

	// Selection order must be preserved on the wire.
	require.Len(t, body.Query, 2)
	assert.Equal(t, "Region", body.Query[0].Code)
	assert.Equal(t, "Tid", body.Query[1].Code)
	assert.Equal(t, "item", body.Query[0].Selection.Filter)
	assert.Equal(t, "json", body.Response.Format)

	require.Len(t, data.Data, 1)
	assert.Equal(t, []string{"Stockholm", "2023"}, data.Data[0].Key)
	assert.Equal(t, []string{"984748"}, data.Data[0].Values)
}

func TestQueryNon200(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	sel := orderedmap.NewOrderedMap[string, []string]()
	sel.Set("Region", []string{"Stockholm"})

	_, err := client.Query(context.Background(), []string{"BE"}, sel)
	assert.Error(t, err)
}
