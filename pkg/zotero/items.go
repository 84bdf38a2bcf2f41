package zotero

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Creator is one entry of an item's creators list. Zotero uses either a
// single display name or a firstName/lastName pair per creator.
type Creator struct {
	CreatorType string `json:"creatorType,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

// Tag is an item tag. The API emits {"tag": "..."} objects but bare
// strings still appear in legacy payloads, so decoding accepts both.
type Tag struct {
	Tag string `json:"tag"`
}

func (t *Tag) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Tag = s
		return nil
	}
	var obj struct {
		Tag string `json:"tag"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Tag = obj.Tag
	return nil
}

// ItemData is the data envelope of an item. Only the fields the server
// reads are modeled; unknown fields are dropped on decode, which is why
// item templates round-trip through untyped maps instead.
type ItemData struct {
	Key          string    `json:"key,omitempty"`
	Version      int       `json:"version,omitempty"`
	ItemType     string    `json:"itemType,omitempty"`
	Title        string    `json:"title,omitempty"`
	Creators     []Creator `json:"creators,omitempty"`
	Date         string    `json:"date,omitempty"`
	DOI          string    `json:"DOI,omitempty"`
	URL          string    `json:"url,omitempty"`
	AbstractNote string    `json:"abstractNote,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
	Extra        string    `json:"extra,omitempty"`
	ArchiveID    string    `json:"archiveID,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	Filename     string    `json:"filename,omitempty"`
	FileSize     *int64    `json:"fileSize,omitempty"`
	Size         *int64    `json:"size,omitempty"`
	ParentItem   string    `json:"parentItem,omitempty"`
	LinkMode     string    `json:"linkMode,omitempty"`
}

// Item is one library item as returned by the API.
type Item struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    ItemData `json:"data"`
}

// CollectionData holds the editable collection fields. ParentCollection
// is the parent key string, or JSON false for top-level collections, so
// it stays untyped.
type CollectionData struct {
	Name             string `json:"name"`
	ParentCollection any    `json:"parentCollection,omitempty"`
}

// CollectionMeta carries derived collection counters.
type CollectionMeta struct {
	NumItems *int `json:"numItems,omitempty"`
}

// Collection is one collection as returned by the API.
type Collection struct {
	Key     string         `json:"key"`
	Version int            `json:"version"`
	Data    CollectionData `json:"data"`
	Meta    CollectionMeta `json:"meta"`
}

// SearchRequest carries the parameters for SearchItems.
type SearchRequest struct {
	Query string
	Limit int
	Sort  string
	Start int
	Tags  []string
}

// SearchItems runs a quicksearch over the user library. Start is only
// forwarded when nonzero so first pages keep a stable cache key. The
// returned headers carry Total-Results and the rel="next" Link.
func (c *Client) SearchItems(ctx context.Context, req SearchRequest) ([]Item, http.Header, error) {
	query := url.Values{}
	query.Set("q", req.Query)
	query.Set("limit", strconv.Itoa(req.Limit))
	query.Set("sort", req.Sort)
	if req.Start > 0 {
		query.Set("start", strconv.Itoa(req.Start))
	}
	for _, tag := range req.Tags {
		query.Add("tag", tag)
	}
	return requestList[Item](ctx, c, apiRequest{
		method: http.MethodGet,
		path:   c.userPath("/items"),
		query:  query,
	})
}

// GetItem fetches a single item by key.
func (c *Client) GetItem(ctx context.Context, itemKey string) (Item, http.Header, error) {
	return requestObject[Item](ctx, c, apiRequest{
		method: http.MethodGet,
		path:   c.userPath("/items/" + url.PathEscape(itemKey)),
	})
}

// ListItemChildren fetches the child items of an item, attachments and
// notes included.
func (c *Client) ListItemChildren(ctx context.Context, itemKey string) ([]Item, http.Header, error) {
	return requestList[Item](ctx, c, apiRequest{
		method: http.MethodGet,
		path:   c.userPath("/items/" + url.PathEscape(itemKey) + "/children"),
	})
}

// GetItemTemplate fetches a blank item template for the given type. The
// endpoint is public and the template carries every field Zotero defines
// for the type, so it stays an untyped map for round-tripping through
// CreateItem.
func (c *Client) GetItemTemplate(ctx context.Context, itemType string) (map[string]any, error) {
	query := url.Values{}
	query.Set("itemType", itemType)
	template, _, err := requestObject[map[string]any](ctx, c, apiRequest{
		method: http.MethodGet,
		path:   "/items/new",
		query:  query,
	})
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, NewUpstreamError("Unexpected Zotero response format.", nil)
	}
	return template, nil
}

// CreateItem posts a single new item and returns the raw write response.
func (c *Client) CreateItem(ctx context.Context, item map[string]any) (map[string]any, error) {
	payload, _, err := requestObject[map[string]any](ctx, c, apiRequest{
		method: http.MethodPost,
		path:   c.userPath("/items"),
		body:   []any{item},
	})
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, NewUpstreamError("Unexpected Zotero response format.", nil)
	}
	return payload, nil
}

// ExtractCreatedKey pulls the created item key and version out of a write
// response. Zotero reports results under "successful" with full entries
// and under "success" with bare key strings; both are checked, lowest
// index first.
func ExtractCreatedKey(payload map[string]any) (string, int, error) {
	if payload == nil {
		return "", 0, NewUpstreamError("Unexpected Zotero create response.", map[string]any{"type": "null"})
	}
	if successful, ok := payload["successful"].(map[string]any); ok {
		for _, idx := range sortedKeys(successful) {
			entry, ok := successful[idx].(map[string]any)
			if !ok {
				continue
			}
			key, _ := entry["key"].(string)
			if key == "" {
				continue
			}
			version := 0
			if v, ok := entry["version"].(float64); ok {
				version = int(v)
			}
			return key, version, nil
		}
	}
	if success, ok := payload["success"].(map[string]any); ok {
		for _, idx := range sortedKeys(success) {
			if key, ok := success[idx].(string); ok && key != "" {
				return key, 0, nil
			}
		}
	}
	return "", 0, NewUpstreamError("Zotero create failed.", map[string]any{"response": payload})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ListCollections fetches one page of the user's collections.
func (c *Client) ListCollections(ctx context.Context, limit, start int) ([]Collection, http.Header, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if start > 0 {
		query.Set("start", strconv.Itoa(start))
	}
	return requestList[Collection](ctx, c, apiRequest{
		method: http.MethodGet,
		path:   c.userPath("/collections"),
		query:  query,
	})
}

// AddItemToCollection adds an existing item to a collection.
func (c *Client) AddItemToCollection(ctx context.Context, collectionKey, itemKey string) error {
	_, err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   c.userPath("/collections/" + url.PathEscape(collectionKey) + "/items"),
		body:   []string{itemKey},
	})
	return err
}

// ResolveCollectionByName finds the single collection whose name matches
// case-insensitively, walking every page of the collection list. Zero
// matches fails with NOT_FOUND, more than one distinct key with
// AMBIGUOUS_COLLECTION.
func (c *Client) ResolveCollectionByName(ctx context.Context, name string) (string, error) {
	var matches []string
	start := 0
	for {
		collections, headers, err := c.ListCollections(ctx, 100, start)
		if err != nil {
			return "", err
		}
		for _, collection := range collections {
			if collection.Key == "" {
				continue
			}
			if strings.EqualFold(collection.Data.Name, name) {
				matches = append(matches, collection.Key)
			}
		}
		next, ok := ParseNextStart(headers)
		if !ok {
			break
		}
		start = next
	}
	if len(matches) == 0 {
		return "", &APIError{
			Code:    ErrorCodeNotFound,
			Message: "Collection not found.",
			Details: map[string]any{"collection_name": name},
		}
	}
	unique := uniqueSorted(matches)
	if len(unique) > 1 {
		return "", &APIError{
			Code:    ErrorCodeAmbiguousCollection,
			Message: "Multiple collections matched the provided name. Use collection_key instead.",
			Details: map[string]any{"collection_name": name, "matches": unique},
		}
	}
	return unique[0], nil
}

func uniqueSorted(values []string) []string {
	unique := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	sort.Strings(unique)
	return unique
}
