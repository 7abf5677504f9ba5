package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// ListBooks fetches the books matching the query. The backend listing
// shape is not guaranteed uniform, so the raw payload goes through
// NormalizeBookList before being returned as an ordered slice.
func (api *APIClient) ListBooks(ctx context.Context, query BookQuery) ([]Book, error) {
	var raw json.RawMessage
	if err := api.do(ctx, http.MethodGet, "/books/", query.Values(), nil, &raw); err != nil {
		return nil, err
	}
	return NormalizeBookList(raw), nil
}

// GetBook fetches one book by its identifier.
func (api *APIClient) GetBook(ctx context.Context, id int64) (Book, error) {
	var book Book
	if err := api.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d/", id), nil, nil, &book); err != nil {
		return Book{}, err
	}
	return book, nil
}

// pagedBooks is the paginated listing envelope.
type pagedBooks struct {
	Results []Book `json:"results"`
}

// NormalizeBookList parses any of the listing shapes served by the
// backend into an ordered books slice: a bare array as-is, a paginated
// `{results: [...]}` envelope by its results, a single book object as a
// one-element slice and a keyed object by its values in ascending key
// order. Any other payload normalizes to an empty slice rather than an
// error, the listing is a degradable read.
func NormalizeBookList(raw json.RawMessage) []Book {
	if len(raw) == 0 {
		return []Book{}
	}

	var list []Book
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			return []Book{}
		}
		return list
	}

	var paged pagedBooks
	if err := json.Unmarshal(raw, &paged); err == nil && paged.Results != nil {
		return paged.Results
	}

	var single Book
	if err := json.Unmarshal(raw, &single); err == nil && single.ID != 0 {
		return []Book{single}
	}

	var keyed map[string]Book
	if err := json.Unmarshal(raw, &keyed); err == nil {
		keys := make([]string, 0, len(keyed))
		for k := range keyed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		books := make([]Book, 0, len(keys))
		for _, k := range keys {
			books = append(books, keyed[k])
		}
		return books
	}

	return []Book{}
}
