package server

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/zotero-mcp/pkg/zotero"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

func requireValidationError(t *testing.T, err error, message string) *zotero.APIError {
	t.Helper()
	apiErr, ok := zotero.AsAPIError(err)
	require.True(t, ok, "expected an APIError, got %v", err)
	assert.Equal(t, zotero.ErrorCodeValidation, apiErr.Code)
	assert.Equal(t, message, apiErr.Message)
	return apiErr
}

func TestValidateLimit(t *testing.T) {
	limit, err := validateLimit(nil)
	require.NoError(t, err)
	assert.Equal(t, 25, limit)

	limit, err = validateLimit(intPtr(100))
	require.NoError(t, err)
	assert.Equal(t, 100, limit)

	for _, bad := range []int{0, -5, 101} {
		_, err := validateLimit(intPtr(bad))
		requireValidationError(t, err, "limit must be between 1 and 100.")
	}
}

func TestValidateListCollectionsInput(t *testing.T) {
	args, err := validateListCollectionsInput(ListCollectionsInput{})
	require.NoError(t, err)
	assert.Equal(t, 25, args.limit)
	assert.Equal(t, 0, args.start)

	args, err = validateListCollectionsInput(ListCollectionsInput{Limit: intPtr(50), Start: intPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, 50, args.limit)
	assert.Equal(t, 100, args.start)

	_, err = validateListCollectionsInput(ListCollectionsInput{Start: intPtr(-1)})
	requireValidationError(t, err, "start must be greater than or equal to 0.")
}

func TestValidateSearchInputRequiresQuery(t *testing.T) {
	_, err := validateSearchInput(SearchItemsInput{})
	requireValidationError(t, err, "query is required and must be a non-empty string.")

	_, err = validateSearchInput(SearchItemsInput{Query: "   "})
	requireValidationError(t, err, "query is required and must be a non-empty string.")
}

func TestValidateSearchInputDefaults(t *testing.T) {
	args, err := validateSearchInput(SearchItemsInput{Query: " quantum "})
	require.NoError(t, err)
	assert.Equal(t, "quantum", args.query)
	assert.Equal(t, 25, args.limit)
	assert.Equal(t, "relevance", args.sort)
	assert.Equal(t, 0, args.start)
	assert.Nil(t, args.tags)
}

func TestValidateSearchInputSortCanonicalization(t *testing.T) {
	args, err := validateSearchInput(SearchItemsInput{Query: "q", Sort: strPtr("DATEMODIFIED")})
	require.NoError(t, err)
	assert.Equal(t, "dateModified", args.sort)

	args, err = validateSearchInput(SearchItemsInput{Query: "q", Sort: strPtr(" title ")})
	require.NoError(t, err)
	assert.Equal(t, "title", args.sort)
}

func TestValidateSearchInputSortEmpty(t *testing.T) {
	_, err := validateSearchInput(SearchItemsInput{Query: "q", Sort: strPtr("  ")})
	requireValidationError(t, err, "sort must be a non-empty string.")
}

func TestValidateSearchInputSortUnknown(t *testing.T) {
	_, err := validateSearchInput(SearchItemsInput{Query: "q", Sort: strPtr("upvotes")})
	apiErr := requireValidationError(t, err, "sort must be a known sort value.")
	assert.Equal(t, "upvotes", apiErr.Details["sort"])
	assert.Equal(t, knownSortValues, apiErr.Details["known_values"])
}

func TestValidateSearchInputStartOffset(t *testing.T) {
	args, err := validateSearchInput(SearchItemsInput{Query: "q", Offset: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, 50, args.start)

	args, err = validateSearchInput(SearchItemsInput{Query: "q", Start: intPtr(25), Offset: intPtr(25)})
	require.NoError(t, err)
	assert.Equal(t, 25, args.start)

	_, err = validateSearchInput(SearchItemsInput{Query: "q", Start: intPtr(25), Offset: intPtr(50)})
	requireValidationError(t, err, "Provide only one of start or offset.")

	_, err = validateSearchInput(SearchItemsInput{Query: "q", Start: intPtr(0), Offset: intPtr(50)})
	requireValidationError(t, err, "Provide only one of start or offset.")

	_, err = validateSearchInput(SearchItemsInput{Query: "q", Start: intPtr(-1)})
	requireValidationError(t, err, "start must be greater than or equal to 0.")

	_, err = validateSearchInput(SearchItemsInput{Query: "q", Offset: intPtr(-1)})
	requireValidationError(t, err, "offset must be greater than or equal to 0.")
}

func TestValidateSearchInputTags(t *testing.T) {
	_, err := validateSearchInput(SearchItemsInput{Query: "q", Tags: []string{"physics", ""}})
	requireValidationError(t, err, "tags must be an array of non-empty strings.")

	args, err := validateSearchInput(SearchItemsInput{Query: "q", Tags: []string{"qec", "physics", "qec"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"qec", "physics"}, args.tags)

	// Search tags are intentionally not trimmed.
	args, err = validateSearchInput(SearchItemsInput{Query: "q", Tags: []string{" qec", "qec"}})
	require.NoError(t, err)
	assert.Equal(t, []string{" qec", "qec"}, args.tags)
}

func TestValidateGetItemInput(t *testing.T) {
	key, err := validateGetItemInput(GetItemInput{ItemKey: " ABCD1234 "})
	require.NoError(t, err)
	assert.Equal(t, "ABCD1234", key)

	_, err = validateGetItemInput(GetItemInput{ItemKey: "   "})
	requireValidationError(t, err, "item_key is required and must be a non-empty string.")
}

func TestValidateCreateItemInputRequired(t *testing.T) {
	_, err := validateCreateItemInput(CreateItemInput{Title: "Paper"})
	requireValidationError(t, err, "item_type is required and must be a non-empty string.")

	_, err = validateCreateItemInput(CreateItemInput{ItemType: "journalArticle", Title: "  "})
	requireValidationError(t, err, "title is required and must be a non-empty string.")

	args, err := validateCreateItemInput(CreateItemInput{ItemType: " journalArticle ", Title: " Paper "})
	require.NoError(t, err)
	assert.Equal(t, "journalArticle", args.itemType)
	assert.Equal(t, "Paper", args.title)
}

func TestValidateCreateItemInputCreators(t *testing.T) {
	_, err := validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Creators: []CreatorInput{{Name: "Ada Lovelace"}},
	})
	requireValidationError(t, err, "creator_type is required for each creator.")

	_, err = validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Creators: []CreatorInput{{CreatorType: "author", Name: "  "}},
	})
	requireValidationError(t, err, "creators entries must include name or first_name/last_name.")

	args, err := validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Creators: []CreatorInput{
			{CreatorType: "author", Name: "CERN Collaboration"},
			{CreatorType: "author", LastName: "Lovelace"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, args.creators, 2)
}

func TestValidateCreateItemInputTags(t *testing.T) {
	_, err := validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Tags:     []string{"qec", "   "},
	})
	requireValidationError(t, err, "tags must be an array of non-empty strings.")

	args, err := validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Tags:     []string{" qec ", "physics", "qec"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"qec", "physics"}, args.tags)
}

func TestValidateCreateItemInputOptionalFieldsPassThrough(t *testing.T) {
	args, err := validateCreateItemInput(CreateItemInput{
		ItemType: "journalArticle",
		Title:    "Paper",
		Date:     "2024-01-02",
		DOI:      "10.1000/xyz123",
		URL:      "https://example.org/paper",
		Abstract: "An abstract.",
		Extra:    "arXiv: 1707.12345",
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", args.date)
	assert.Equal(t, "10.1000/xyz123", args.doi)
	assert.Equal(t, "https://example.org/paper", args.url)
	assert.Equal(t, "An abstract.", args.abstract)
	assert.Equal(t, "arXiv: 1707.12345", args.extra)
}

func TestSerializeCreators(t *testing.T) {
	creators := serializeCreators([]CreatorInput{
		{CreatorType: " author ", Name: " CERN Collaboration ", FirstName: "ignored"},
		{CreatorType: "author", FirstName: " Ada ", LastName: " Lovelace "},
	})
	require.Len(t, creators, 2)
	assert.Equal(t, zotero.Creator{CreatorType: "author", Name: "CERN Collaboration"}, creators[0])
	assert.Equal(t, zotero.Creator{CreatorType: "author", FirstName: "Ada", LastName: "Lovelace"}, creators[1])
}

func TestValidateUploadInputSourceExclusivity(t *testing.T) {
	_, err := validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111"}, 1<<20)
	requireValidationError(t, err, "Provide exactly one of file_path, file_url, or file_bytes_base64.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:  "ITEM1111",
		FilePath: "/tmp/a.pdf",
		FileURL:  "https://example.org/a.pdf",
	}, 1<<20)
	requireValidationError(t, err, "Provide exactly one of file_path, file_url, or file_bytes_base64.")
}

func TestValidateUploadInputFilePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	req, err := validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111", FilePath: " " + path + " "}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, path, req.FilePath)
	assert.Equal(t, "ITEM1111", req.ItemKey)

	_, err = validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111", FilePath: "   "}, 1<<20)
	requireValidationError(t, err, "file_path must be a non-empty string when provided.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:  "ITEM1111",
		FilePath: filepath.Join(dir, "missing.pdf"),
	}, 1<<20)
	requireValidationError(t, err, "file_path does not exist.")
}

func TestValidateUploadInputFileURL(t *testing.T) {
	req, err := validateUploadInput(UploadAttachmentInput{
		ItemKey: "ITEM1111",
		FileURL: " https://example.org/paper.pdf ",
	}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/paper.pdf", req.FileURL)

	_, err = validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111", FileURL: "   "}, 1<<20)
	requireValidationError(t, err, "file_url must be a non-empty string when provided.")

	_, err = validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111", FileURL: "ftp://example.org/a.pdf"}, 1<<20)
	requireValidationError(t, err, "file_url must be http or https.")

	_, err = validateUploadInput(UploadAttachmentInput{ItemKey: "ITEM1111", FileURL: "http://"}, 1<<20)
	requireValidationError(t, err, "file_url must include a host.")
}

func TestValidateUploadInputFileBytes(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("data"))

	req, err := validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
		Filename:        "paper.pdf",
	}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), req.FileBytes)
	assert.Equal(t, "paper.pdf", req.Filename)

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: "   ",
		Filename:        "paper.pdf",
	}, 1<<20)
	requireValidationError(t, err, "file_bytes_base64 must be a non-empty string when provided.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: "not base64!",
		Filename:        "paper.pdf",
	}, 1<<20)
	requireValidationError(t, err, "file_bytes_base64 must be valid base64.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
	}, 1<<20)
	requireValidationError(t, err, "filename is required when using file_bytes_base64.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
		Filename:        "paper.pdf",
	}, 3)
	apiErr := requireValidationError(t, err, "file_bytes exceeds upload size limit.")
	assert.Equal(t, 4, apiErr.Details["size"])
	assert.Equal(t, int64(3), apiErr.Details["max_bytes"])
}

func TestValidateUploadInputOptionalFields(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("data"))

	_, err := validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
		Filename:        "paper.pdf",
		Title:           "   ",
	}, 1<<20)
	requireValidationError(t, err, "title must be a non-empty string when provided.")

	_, err = validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
		Filename:        "   ",
	}, 1<<20)
	requireValidationError(t, err, "filename must be a non-empty string when provided.")

	req, err := validateUploadInput(UploadAttachmentInput{
		ItemKey:         "ITEM1111",
		FileBytesBase64: encoded,
		Filename:        "paper.pdf",
		Title:           "Preprint",
		ContentType:     " application/pdf ",
	}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "Preprint", req.Title)
	assert.Equal(t, "application/pdf", req.ContentType)
}

func TestValidateAttachArxivInput(t *testing.T) {
	_, err := validateAttachArxivInput(AttachArxivInput{ArxivID: "1707.12345"})
	requireValidationError(t, err, "item_key is required and must be a non-empty string.")

	_, err = validateAttachArxivInput(AttachArxivInput{ItemKey: "ITEM1111", ArxivID: "   "})
	requireValidationError(t, err, "arxiv_id is required and must be a non-empty string.")

	_, err = validateAttachArxivInput(AttachArxivInput{ItemKey: "ITEM1111", ArxivID: "not an id"})
	requireValidationError(t, err, "arxiv_id must be a valid arXiv identifier or URL.")

	args, err := validateAttachArxivInput(AttachArxivInput{ItemKey: "ITEM1111", ArxivID: " arXiv:1707.12345 "})
	require.NoError(t, err)
	assert.Equal(t, "ITEM1111", args.itemKey)
	assert.Equal(t, "arXiv:1707.12345", args.arxivID)

	args, err = validateAttachArxivInput(AttachArxivInput{
		ItemKey: "ITEM1111",
		ArxivID: "https://arxiv.org/abs/1707.12345v2",
		Title:   "Preprint",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://arxiv.org/abs/1707.12345v2", args.arxivID)
	assert.Equal(t, "Preprint", args.title)

	_, err = validateAttachArxivInput(AttachArxivInput{ItemKey: "ITEM1111", ArxivID: "1707.12345", Title: "  "})
	requireValidationError(t, err, "title must be a non-empty string when provided.")
}

func TestValidateAddToCollectionInput(t *testing.T) {
	_, err := validateAddToCollectionInput(AddToCollectionInput{ItemKey: "ITEM1111"})
	requireValidationError(t, err, "Provide collection_key or collection_name.")

	_, err = validateAddToCollectionInput(AddToCollectionInput{ItemKey: "ITEM1111", CollectionKey: "  "})
	requireValidationError(t, err, "collection_key must be a non-empty string when provided.")

	_, err = validateAddToCollectionInput(AddToCollectionInput{ItemKey: "ITEM1111", CollectionName: "  "})
	requireValidationError(t, err, "collection_name must be a non-empty string when provided.")

	args, err := validateAddToCollectionInput(AddToCollectionInput{
		ItemKey:        " ITEM1111 ",
		CollectionKey:  " COLL1111 ",
		CollectionName: "Reading List",
	})
	require.NoError(t, err)
	assert.Equal(t, "ITEM1111", args.itemKey)
	assert.Equal(t, "COLL1111", args.collectionKey)
	assert.Equal(t, "Reading List", args.collectionName)

	args, err = validateAddToCollectionInput(AddToCollectionInput{ItemKey: "ITEM1111", CollectionName: "Reading List"})
	require.NoError(t, err)
	assert.Equal(t, "", args.collectionKey)
	assert.Equal(t, "Reading List", args.collectionName)
}
