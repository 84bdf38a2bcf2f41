package server

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/Sternrassler/zotero-mcp/pkg/identifier"
	"github.com/Sternrassler/zotero-mcp/pkg/zotero"
)

const (
	defaultLimit = 25
	defaultSort  = "relevance"
	fallbackSort = "dateModified"
)

// knownSortValues are the sort keys the search tools accept, in the order
// zotero_get_sort_values advertises them.
var knownSortValues = []string{
	"relevance",
	"dateAdded",
	"dateModified",
	"title",
	"creator",
	"date",
	"publisher",
	"publicationTitle",
	"itemType",
	"numChildren",
	"numTags",
	"language",
}

// canonicalSortValue maps a case-insensitive spelling onto the canonical
// sort key.
func canonicalSortValue(value string) (string, bool) {
	for _, known := range knownSortValues {
		if strings.EqualFold(known, value) {
			return known, true
		}
	}
	return "", false
}

// dedupe drops repeated values while keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func requireItemKey(raw string) (string, error) {
	itemKey := strings.TrimSpace(raw)
	if itemKey == "" {
		return "", zotero.NewValidationError("item_key is required and must be a non-empty string.", nil)
	}
	return itemKey, nil
}

func validateLimit(limit *int) (int, error) {
	if limit == nil {
		return defaultLimit, nil
	}
	if *limit < 1 || *limit > 100 {
		return 0, zotero.NewValidationError("limit must be between 1 and 100.", nil)
	}
	return *limit, nil
}

type listCollectionsArgs struct {
	limit int
	start int
}

func validateListCollectionsInput(in ListCollectionsInput) (listCollectionsArgs, error) {
	var args listCollectionsArgs

	limit, err := validateLimit(in.Limit)
	if err != nil {
		return args, err
	}
	args.limit = limit

	if in.Start != nil {
		if *in.Start < 0 {
			return args, zotero.NewValidationError("start must be greater than or equal to 0.", nil)
		}
		args.start = *in.Start
	}
	return args, nil
}

type searchArgs struct {
	query string
	limit int
	sort  string
	start int
	tags  []string
}

// validateSearchInput normalizes the search arguments. The offset alias is
// reconciled into start; providing both with different values is rejected.
func validateSearchInput(in SearchItemsInput) (searchArgs, error) {
	var args searchArgs

	query := strings.TrimSpace(in.Query)
	if query == "" {
		return args, zotero.NewValidationError("query is required and must be a non-empty string.", nil)
	}
	args.query = query

	limit, err := validateLimit(in.Limit)
	if err != nil {
		return args, err
	}
	args.limit = limit

	args.sort = defaultSort
	if in.Sort != nil {
		sort := strings.TrimSpace(*in.Sort)
		if sort == "" {
			return args, zotero.NewValidationError("sort must be a non-empty string.", nil)
		}
		canonical, ok := canonicalSortValue(sort)
		if !ok {
			return args, zotero.NewValidationError("sort must be a known sort value.", map[string]any{
				"sort":         sort,
				"known_values": knownSortValues,
			})
		}
		args.sort = canonical
	}

	if in.Start != nil {
		if *in.Start < 0 {
			return args, zotero.NewValidationError("start must be greater than or equal to 0.", nil)
		}
		args.start = *in.Start
	}
	if in.Offset != nil {
		offset := *in.Offset
		if offset < 0 {
			return args, zotero.NewValidationError("offset must be greater than or equal to 0.", nil)
		}
		if in.Start != nil && offset != args.start {
			return args, zotero.NewValidationError("Provide only one of start or offset.", nil)
		}
		args.start = offset
	}

	if len(in.Tags) > 0 {
		for _, tag := range in.Tags {
			if tag == "" {
				return args, zotero.NewValidationError("tags must be an array of non-empty strings.", nil)
			}
		}
		args.tags = dedupe(in.Tags)
	}
	return args, nil
}

func validateGetItemInput(in GetItemInput) (string, error) {
	return requireItemKey(in.ItemKey)
}

type createItemArgs struct {
	itemType string
	title    string
	creators []CreatorInput
	date     string
	doi      string
	url      string
	abstract string
	tags     []string
	extra    string
}

func validateCreateItemInput(in CreateItemInput) (createItemArgs, error) {
	var args createItemArgs

	itemType := strings.TrimSpace(in.ItemType)
	if itemType == "" {
		return args, zotero.NewValidationError("item_type is required and must be a non-empty string.", nil)
	}
	args.itemType = itemType

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return args, zotero.NewValidationError("title is required and must be a non-empty string.", nil)
	}
	args.title = title

	for _, creator := range in.Creators {
		if strings.TrimSpace(creator.CreatorType) == "" {
			return args, zotero.NewValidationError("creator_type is required for each creator.", nil)
		}
		hasName := strings.TrimSpace(creator.Name) != ""
		hasFirst := strings.TrimSpace(creator.FirstName) != ""
		hasLast := strings.TrimSpace(creator.LastName) != ""
		if !hasName && !hasFirst && !hasLast {
			return args, zotero.NewValidationError("creators entries must include name or first_name/last_name.", nil)
		}
	}
	args.creators = in.Creators

	if len(in.Tags) > 0 {
		stripped := make([]string, 0, len(in.Tags))
		for _, tag := range in.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				return args, zotero.NewValidationError("tags must be an array of non-empty strings.", nil)
			}
			stripped = append(stripped, tag)
		}
		args.tags = dedupe(stripped)
	}

	args.date = in.Date
	args.doi = in.DOI
	args.url = in.URL
	args.abstract = in.Abstract
	args.extra = in.Extra
	return args, nil
}

// serializeCreators builds the creator objects for an item template. A
// display name wins over the first/last pair when both are present.
func serializeCreators(creators []CreatorInput) []zotero.Creator {
	out := make([]zotero.Creator, 0, len(creators))
	for _, creator := range creators {
		entry := zotero.Creator{CreatorType: strings.TrimSpace(creator.CreatorType)}
		if name := strings.TrimSpace(creator.Name); name != "" {
			entry.Name = name
		} else {
			entry.FirstName = strings.TrimSpace(creator.FirstName)
			entry.LastName = strings.TrimSpace(creator.LastName)
		}
		out = append(out, entry)
	}
	return out
}

// validateUploadInput checks the attachment source arguments and builds
// the upload request. Exactly one of file_path, file_url, and
// file_bytes_base64 must be given; inline payloads are decoded and
// capped here so oversized requests fail before any network traffic.
func validateUploadInput(in UploadAttachmentInput, maxBytes int64) (zotero.UploadRequest, error) {
	var req zotero.UploadRequest

	itemKey, err := requireItemKey(in.ItemKey)
	if err != nil {
		return req, err
	}
	req.ItemKey = itemKey

	provided := 0
	for _, source := range []string{in.FilePath, in.FileURL, in.FileBytesBase64} {
		if source != "" {
			provided++
		}
	}
	if provided != 1 {
		return req, zotero.NewValidationError("Provide exactly one of file_path, file_url, or file_bytes_base64.", nil)
	}

	switch {
	case in.FilePath != "":
		filePath := strings.TrimSpace(in.FilePath)
		if filePath == "" {
			return req, zotero.NewValidationError("file_path must be a non-empty string when provided.", nil)
		}
		if _, err := zotero.ValidateUploadFile(filePath, maxBytes); err != nil {
			return req, err
		}
		req.FilePath = filePath
	case in.FileURL != "":
		fileURL := strings.TrimSpace(in.FileURL)
		if fileURL == "" {
			return req, zotero.NewValidationError("file_url must be a non-empty string when provided.", nil)
		}
		parsed, err := url.Parse(fileURL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return req, zotero.NewValidationError("file_url must be http or https.", nil)
		}
		if parsed.Host == "" {
			return req, zotero.NewValidationError("file_url must include a host.", nil)
		}
		req.FileURL = fileURL
	default:
		if strings.TrimSpace(in.FileBytesBase64) == "" {
			return req, zotero.NewValidationError("file_bytes_base64 must be a non-empty string when provided.", nil)
		}
		decoded, err := base64.StdEncoding.DecodeString(in.FileBytesBase64)
		if err != nil {
			return req, zotero.NewValidationError("file_bytes_base64 must be valid base64.", nil)
		}
		if int64(len(decoded)) > maxBytes {
			return req, zotero.NewValidationError("file_bytes exceeds upload size limit.", map[string]any{
				"size":      len(decoded),
				"max_bytes": maxBytes,
			})
		}
		req.FileBytes = decoded
	}

	if in.Title != "" && strings.TrimSpace(in.Title) == "" {
		return req, zotero.NewValidationError("title must be a non-empty string when provided.", nil)
	}
	req.Title = in.Title
	req.ContentType = strings.TrimSpace(in.ContentType)

	filename := ""
	if in.Filename != "" {
		filename = strings.TrimSpace(in.Filename)
		if filename == "" {
			return req, zotero.NewValidationError("filename must be a non-empty string when provided.", nil)
		}
	}
	if in.FileBytesBase64 != "" && filename == "" {
		return req, zotero.NewValidationError("filename is required when using file_bytes_base64.", nil)
	}
	req.Filename = filename
	return req, nil
}

type attachArxivArgs struct {
	itemKey string
	arxivID string
	title   string
}

func validateAttachArxivInput(in AttachArxivInput) (attachArxivArgs, error) {
	var args attachArxivArgs

	itemKey, err := requireItemKey(in.ItemKey)
	if err != nil {
		return args, err
	}
	args.itemKey = itemKey

	arxivID := strings.TrimSpace(in.ArxivID)
	if arxivID == "" {
		return args, zotero.NewValidationError("arxiv_id is required and must be a non-empty string.", nil)
	}
	if _, ok := identifier.ParseArxivID(arxivID); !ok {
		return args, zotero.NewValidationError("arxiv_id must be a valid arXiv identifier or URL.", nil)
	}
	args.arxivID = arxivID

	if in.Title != "" && strings.TrimSpace(in.Title) == "" {
		return args, zotero.NewValidationError("title must be a non-empty string when provided.", nil)
	}
	args.title = in.Title
	return args, nil
}

type addToCollectionArgs struct {
	itemKey        string
	collectionKey  string
	collectionName string
}

// validateAddToCollectionInput accepts either a collection key or a
// display name; when both are given the key wins and the name is ignored.
func validateAddToCollectionInput(in AddToCollectionInput) (addToCollectionArgs, error) {
	var args addToCollectionArgs

	itemKey, err := requireItemKey(in.ItemKey)
	if err != nil {
		return args, err
	}
	args.itemKey = itemKey

	if in.CollectionKey != "" {
		args.collectionKey = strings.TrimSpace(in.CollectionKey)
		if args.collectionKey == "" {
			return args, zotero.NewValidationError("collection_key must be a non-empty string when provided.", nil)
		}
	}
	if in.CollectionName != "" {
		args.collectionName = strings.TrimSpace(in.CollectionName)
		if args.collectionName == "" {
			return args, zotero.NewValidationError("collection_name must be a non-empty string when provided.", nil)
		}
	}
	if args.collectionKey == "" && args.collectionName == "" {
		return args, zotero.NewValidationError("Provide collection_key or collection_name.", nil)
	}
	return args, nil
}
