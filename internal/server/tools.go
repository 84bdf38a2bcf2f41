package server

import (
	"context"

	"github.com/Sternrassler/zotero-mcp/pkg/identifier"
	"github.com/Sternrassler/zotero-mcp/pkg/zotero"
)

// Tool names as advertised to MCP clients.
const (
	toolListCollections     = "zotero_list_collections"
	toolSearchItems         = "zotero_search_items"
	toolGetSortValues       = "zotero_get_sort_values"
	toolGetItem             = "zotero_get_item"
	toolCreateItem          = "zotero_create_item"
	toolUploadAttachment    = "zotero_upload_attachment"
	toolAttachArxivPDF      = "zotero_attach_arxiv_pdf"
	toolAddItemToCollection = "zotero_add_item_to_collection"
)

// ListCollectionsInput are the arguments of zotero_list_collections.
type ListCollectionsInput struct {
	Limit *int `json:"limit,omitempty"`
	Start *int `json:"start,omitempty"`
}

// SearchItemsInput are the arguments of zotero_search_items. Offset is an
// alias for start kept for clients that page with offset semantics.
type SearchItemsInput struct {
	Query  string   `json:"query"`
	Limit  *int     `json:"limit,omitempty"`
	Sort   *string  `json:"sort,omitempty"`
	Start  *int     `json:"start,omitempty"`
	Offset *int     `json:"offset,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// SortValuesInput is empty; zotero_get_sort_values takes no arguments.
type SortValuesInput struct{}

// GetItemInput are the arguments of zotero_get_item.
type GetItemInput struct {
	ItemKey string `json:"item_key"`
}

// CreatorInput is one creator on a new item. Either a single display
// name or a first/last pair must be present.
type CreatorInput struct {
	CreatorType string `json:"creator_type"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// CreateItemInput are the arguments of zotero_create_item.
type CreateItemInput struct {
	ItemType string         `json:"item_type"`
	Title    string         `json:"title"`
	Creators []CreatorInput `json:"creators,omitempty"`
	Date     string         `json:"date,omitempty"`
	DOI      string         `json:"doi,omitempty"`
	URL      string         `json:"url,omitempty"`
	Abstract string         `json:"abstract,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Extra    string         `json:"extra,omitempty"`
}

// UploadAttachmentInput are the arguments of zotero_upload_attachment.
// Exactly one of FilePath, FileURL, and FileBytesBase64 selects the
// attachment source.
type UploadAttachmentInput struct {
	ItemKey         string `json:"item_key"`
	FilePath        string `json:"file_path,omitempty"`
	FileURL         string `json:"file_url,omitempty"`
	FileBytesBase64 string `json:"file_bytes_base64,omitempty"`
	Filename        string `json:"filename,omitempty"`
	Title           string `json:"title,omitempty"`
	ContentType     string `json:"content_type,omitempty"`
}

// AttachArxivInput are the arguments of zotero_attach_arxiv_pdf.
type AttachArxivInput struct {
	ItemKey string `json:"item_key"`
	ArxivID string `json:"arxiv_id"`
	Title   string `json:"title,omitempty"`
}

// AddToCollectionInput are the arguments of zotero_add_item_to_collection.
type AddToCollectionInput struct {
	ItemKey        string `json:"item_key"`
	CollectionKey  string `json:"collection_key,omitempty"`
	CollectionName string `json:"collection_name,omitempty"`
}

// ListCollectionsData is the payload of a successful
// zotero_list_collections call.
type ListCollectionsData struct {
	Collections []Collection `json:"collections"`
	Total       int          `json:"total"`
	NextStart   *int         `json:"next_start,omitempty"`
}

// SearchItemsData is the payload of a successful zotero_search_items
// call. SortUsed is only present when the server fell back to a
// different sort than the one requested.
type SearchItemsData struct {
	Items     []Item `json:"items"`
	Total     int    `json:"total"`
	NextStart *int   `json:"next_start,omitempty"`
	SortUsed  string `json:"sort_used,omitempty"`
}

// SortValuesData lists the accepted sort keys plus the default and the
// fallback applied when the upstream rejects the default.
type SortValuesData struct {
	Values   []string `json:"values"`
	Default  string   `json:"default"`
	Fallback string   `json:"fallback"`
}

// GetItemData is the payload of a successful zotero_get_item call.
type GetItemData struct {
	Item ItemDetail `json:"item"`
}

// CreateItemData reports a created item. Item echoes the template as it
// was submitted to the Zotero API.
type CreateItemData struct {
	ItemKey string         `json:"item_key"`
	Version int            `json:"version"`
	Item    map[string]any `json:"item"`
}

// AddToCollectionData reports a completed collection assignment.
type AddToCollectionData struct {
	ItemKey       string `json:"item_key"`
	CollectionKey string `json:"collection_key"`
}

func (s *Server) listCollections(ctx context.Context, in ListCollectionsInput) (any, error) {
	args, err := validateListCollectionsInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	collections, headers, err := client.ListCollections(ctx, args.limit, args.start)
	if err != nil {
		return nil, err
	}

	data := ListCollectionsData{Collections: normalizeCollections(collections)}
	if total, ok := zotero.ParseTotalResults(headers); ok && total > 0 {
		data.Total = total
	} else {
		data.Total = len(data.Collections)
	}
	if next, ok := zotero.ParseNextStart(headers); ok {
		data.NextStart = &next
	}
	return data, nil
}

func (s *Server) searchItems(ctx context.Context, in SearchItemsInput) (any, error) {
	args, err := validateSearchInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	// Exact identifier lookups rewrite the query so the upstream search
	// narrows to the identifier, then the results are filtered locally.
	searchQuery := args.query
	exactDOI, _ := identifier.ExtractExactDOI(args.query)
	exactArxiv := ""
	if exactDOI != "" {
		searchQuery = exactDOI
	} else if id, ok := identifier.ExtractExactArxivID(args.query); ok {
		exactArxiv = id.String()
		searchQuery = exactArxiv
	}

	sortUsed := args.sort
	request := zotero.SearchRequest{
		Query: searchQuery,
		Limit: args.limit,
		Sort:  sortUsed,
		Start: args.start,
		Tags:  args.tags,
	}
	items, headers, err := client.SearchItems(ctx, request)
	if err != nil {
		if sortUsed != defaultSort || !zotero.IsCode(err, zotero.ErrorCodeValidation) {
			return nil, err
		}
		apiErr, _ := zotero.AsAPIError(err)
		sortUsed = fallbackSort
		logger := s.callLogger(ctx)
		logger.Warn().
			Str("event", "tool.sort_fallback").
			Str("tool", toolSearchItems).
			Str("fallback_sort", sortUsed).
			Str("reason", apiErr.Message).
			Msg("Retrying search with the fallback sort")
		request.Sort = sortUsed
		items, headers, err = client.SearchItems(ctx, request)
		if err != nil {
			return nil, err
		}
	}

	exact := exactDOI != "" || exactArxiv != ""
	if exact {
		items = filterExactItems(items, exactDOI, exactArxiv)
	}

	data := SearchItemsData{Items: normalizeItems(items)}
	if exact {
		data.Total = len(data.Items)
	} else {
		if total, ok := zotero.ParseTotalResults(headers); ok && total > 0 {
			data.Total = total
		} else {
			data.Total = len(data.Items)
		}
		if next, ok := zotero.ParseNextStart(headers); ok {
			data.NextStart = &next
		}
	}
	if sortUsed != args.sort {
		data.SortUsed = sortUsed
	}
	return data, nil
}

// filterExactItems keeps only the items that carry the requested exact
// identifier in their DOI, archive id, or extra field.
func filterExactItems(items []zotero.Item, doi, arxivID string) []zotero.Item {
	records := make([]identifier.Record, len(items))
	for i, item := range items {
		records[i] = identifier.Record{
			DOI:       item.Data.DOI,
			ArchiveID: item.Data.ArchiveID,
			Extra:     item.Data.Extra,
		}
	}
	filtered := make([]zotero.Item, 0, len(items))
	for _, index := range identifier.FilterExact(records, doi, arxivID) {
		filtered = append(filtered, items[index])
	}
	return filtered
}

func (s *Server) getSortValues(_ context.Context, _ SortValuesInput) (any, error) {
	return SortValuesData{
		Values:   append([]string(nil), knownSortValues...),
		Default:  defaultSort,
		Fallback: fallbackSort,
	}, nil
}

func (s *Server) getItem(ctx context.Context, in GetItemInput) (any, error) {
	itemKey, err := validateGetItemInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	item, _, err := client.GetItem(ctx, itemKey)
	if err != nil {
		return nil, err
	}
	children, _, err := client.ListItemChildren(ctx, itemKey)
	if err != nil {
		return nil, err
	}

	return GetItemData{Item: ItemDetail{
		Item:        normalizeItem(item),
		Attachments: normalizeAttachments(children),
	}}, nil
}

func (s *Server) createItem(ctx context.Context, in CreateItemInput) (any, error) {
	args, err := validateCreateItemInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	template, err := client.GetItemTemplate(ctx, args.itemType)
	if err != nil {
		return nil, err
	}

	template["title"] = args.title
	if creators := serializeCreators(args.creators); len(creators) > 0 {
		template["creators"] = creators
	}
	if args.date != "" {
		template["date"] = args.date
	}
	if args.doi != "" {
		template["DOI"] = args.doi
	}
	if args.url != "" {
		template["url"] = args.url
	}
	if args.abstract != "" {
		template["abstractNote"] = args.abstract
	}
	if len(args.tags) > 0 {
		tags := make([]zotero.Tag, 0, len(args.tags))
		for _, tag := range args.tags {
			tags = append(tags, zotero.Tag{Tag: tag})
		}
		template["tags"] = tags
	}
	if args.extra != "" {
		template["extra"] = args.extra
	}

	payload, err := client.CreateItem(ctx, template)
	if err != nil {
		return nil, err
	}
	itemKey, version, err := zotero.ExtractCreatedKey(payload)
	if err != nil {
		return nil, err
	}

	return CreateItemData{ItemKey: itemKey, Version: version, Item: template}, nil
}

func (s *Server) uploadAttachment(ctx context.Context, in UploadAttachmentInput) (any, error) {
	request, err := validateUploadInput(in, s.uploadMaxBytes)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	result, err := client.UploadAttachment(ctx, request)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) attachArxivPDF(ctx context.Context, in AttachArxivInput) (any, error) {
	args, err := validateAttachArxivInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	result, err := client.AttachArxivPDF(ctx, args.itemKey, args.arxivID, args.title)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) addItemToCollection(ctx context.Context, in AddToCollectionInput) (any, error) {
	args, err := validateAddToCollectionInput(in)
	if err != nil {
		return nil, err
	}
	client, err := s.zotero(ctx)
	if err != nil {
		return nil, err
	}

	collectionKey := args.collectionKey
	if collectionKey == "" {
		collectionKey, err = client.ResolveCollectionByName(ctx, args.collectionName)
		if err != nil {
			return nil, err
		}
	}
	if err := client.AddItemToCollection(ctx, collectionKey, args.itemKey); err != nil {
		return nil, err
	}
	return AddToCollectionData{ItemKey: args.itemKey, CollectionKey: collectionKey}, nil
}
