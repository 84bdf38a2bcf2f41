package zotero

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/zotero-mcp/pkg/identifier"
)

const arxivUserAgent = "zotero-mcp"

// UploadRequest carries the parameters for UploadAttachment. Exactly one
// of FilePath, FileURL, or FileBytes supplies the payload; when several
// are set the first in that order wins.
type UploadRequest struct {
	ItemKey     string
	FilePath    string
	FileURL     string
	FileBytes   []byte
	Filename    string
	Title       string
	ContentType string
}

// UploadResult reports a completed attachment upload.
type UploadResult struct {
	AttachmentKey string `json:"attachment_key"`
	ParentItemKey string `json:"parent_item_key"`
	Title         string `json:"title"`
	ContentType   string `json:"content_type"`
	Size          int64  `json:"size"`
	Version       int    `json:"version"`
}

// ArxivAttachment is an UploadResult plus the resolved arXiv identity.
type ArxivAttachment struct {
	UploadResult
	ArxivID string `json:"arxiv_id"`
	PDFURL  string `json:"pdf_url"`
}

// ValidateUploadFile checks that filePath names a readable regular file
// within the upload size limit and returns its stat info.
func ValidateUploadFile(filePath string, maxBytes int64) (os.FileInfo, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewValidationError("file_path does not exist.", nil)
		}
		return nil, NewValidationError("file_path is not readable.", nil)
	}
	if !info.Mode().IsRegular() {
		return nil, NewValidationError("file_path must point to a local file.", nil)
	}
	f, err := os.Open(filePath)
	if err != nil {
		return nil, NewValidationError("file_path is not readable.", nil)
	}
	f.Close()
	if info.Size() > maxBytes {
		return nil, NewValidationError("file_path exceeds upload size limit.", map[string]any{
			"size":      info.Size(),
			"max_bytes": maxBytes,
		})
	}
	return info, nil
}

// UploadAttachment stores a file as an imported_file attachment under the
// given parent item. The flow follows Zotero's file upload protocol:
// create the attachment item from a template, request upload
// authorization, send the multipart payload to the storage URL, then
// register the upload. When the server already has the content it
// answers the authorization request with exists=1 and the transfer is
// skipped.
func (c *Client) UploadAttachment(ctx context.Context, req UploadRequest) (UploadResult, error) {
	contentType := strings.TrimSpace(req.ContentType)
	filename := strings.TrimSpace(req.Filename)
	mtime := time.Now()
	var fileBytes []byte
	var size int64

	switch {
	case req.FilePath != "":
		info, err := ValidateUploadFile(req.FilePath, c.config.UploadMaxBytes)
		if err != nil {
			return UploadResult{}, err
		}
		fileBytes, err = os.ReadFile(req.FilePath)
		if err != nil {
			return UploadResult{}, NewValidationError("file_path is not readable.", nil)
		}
		filename = filepath.Base(req.FilePath)
		size = info.Size()
		mtime = info.ModTime()
	case req.FileURL != "":
		downloaded, inferredName, inferredType, err := c.downloadFile(ctx, req.FileURL)
		if err != nil {
			return UploadResult{}, err
		}
		fileBytes = downloaded
		if filename == "" {
			filename = inferredName
		}
		if contentType == "" && inferredType != "" {
			media, _, _ := strings.Cut(inferredType, ";")
			contentType = strings.TrimSpace(media)
		}
		size = int64(len(fileBytes))
	case req.FileBytes != nil:
		if int64(len(req.FileBytes)) > c.config.UploadMaxBytes {
			return UploadResult{}, NewValidationError("file_bytes exceeds upload size limit.", map[string]any{
				"size":      len(req.FileBytes),
				"max_bytes": c.config.UploadMaxBytes,
			})
		}
		fileBytes = req.FileBytes
		size = int64(len(fileBytes))
	default:
		return UploadResult{}, NewValidationError("Provide exactly one of file_path, file_url, or file_bytes.", nil)
	}

	if filename == "" {
		filename = "attachment"
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = filename
	}
	if contentType == "" {
		contentType = inferContentType(filename)
	}

	digest := md5.Sum(fileBytes)
	md5Hash := hex.EncodeToString(digest[:])

	template, err := c.attachmentTemplate(ctx)
	if err != nil {
		return UploadResult{}, err
	}
	template["parentItem"] = req.ItemKey
	template["linkMode"] = "imported_file"
	template["title"] = title
	template["filename"] = filename
	template["contentType"] = contentType

	created, _, err := requestObject[map[string]any](ctx, c, apiRequest{
		method: http.MethodPost,
		path:   c.userPath("/items"),
		body:   []any{template},
	})
	if err != nil {
		return UploadResult{}, err
	}
	attachmentKey, attachmentVersion, err := ExtractCreatedKey(created)
	if err != nil {
		return UploadResult{}, err
	}

	auth, _, err := requestObject[map[string]any](ctx, c, apiRequest{
		method: http.MethodPost,
		path:   c.userPath("/items/" + url.PathEscape(attachmentKey) + "/file"),
		body: map[string]any{
			"md5":      md5Hash,
			"filename": filename,
			"filesize": size,
			"mtime":    mtime.Unix(),
		},
		headers: map[string]string{"If-None-Match": "*"},
	})
	if err != nil {
		return UploadResult{}, err
	}
	if auth == nil {
		return UploadResult{}, NewUpstreamError("Unexpected upload auth response.", map[string]any{"type": "null"})
	}

	result := UploadResult{
		AttachmentKey: attachmentKey,
		ParentItemKey: req.ItemKey,
		Title:         title,
		ContentType:   contentType,
		Size:          size,
		Version:       attachmentVersion,
	}

	if exists, ok := auth["exists"].(float64); ok && exists == 1 {
		return result, nil
	}

	uploadURL, _ := auth["url"].(string)
	prefix, _ := auth["prefix"].(string)
	suffix, _ := auth["suffix"].(string)
	uploadKey, _ := auth["uploadKey"].(string)
	if uploadURL == "" || prefix == "" || suffix == "" || uploadKey == "" {
		return UploadResult{}, NewUpstreamError("Upload auth response missing fields.", map[string]any{"response": auth})
	}
	uploadContentType, _ := auth["contentType"].(string)

	if err := c.uploadMultipart(ctx, uploadURL, prefix, suffix, fileBytes, uploadContentType); err != nil {
		return UploadResult{}, err
	}

	if _, err := c.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   c.userPath("/items/" + url.PathEscape(attachmentKey) + "/file"),
		body:   map[string]any{"uploadKey": uploadKey},
	}); err != nil {
		return UploadResult{}, err
	}
	return result, nil
}

// AttachArxivPDF downloads the PDF for an arXiv identifier and attaches
// it to the item. The identifier may be a bare ID, an arxiv: prefixed
// form, or an abs/pdf URL.
func (c *Client) AttachArxivPDF(ctx context.Context, itemKey, arxivID, title string) (ArxivAttachment, error) {
	id, ok := identifier.ParseArxivID(arxivID)
	if !ok {
		return ArxivAttachment{}, NewValidationError("Unable to parse arXiv identifier.", nil)
	}
	pdfURL := "https://arxiv.org/pdf/" + id.String() + ".pdf"

	tempPath, err := c.fetchArxivPDF(ctx, pdfURL)
	if err != nil {
		return ArxivAttachment{}, err
	}
	defer func() {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger := c.requestLogger(ctx)
			logger.Warn().Err(err).Msg("arxiv.cleanup_failed")
		}
	}()

	result, err := c.UploadAttachment(ctx, UploadRequest{
		ItemKey:     itemKey,
		FilePath:    tempPath,
		Title:       title,
		ContentType: "application/pdf",
	})
	if err != nil {
		return ArxivAttachment{}, err
	}
	return ArxivAttachment{UploadResult: result, ArxivID: id.String(), PDFURL: pdfURL}, nil
}

// attachmentTemplate fetches the imported_file attachment template. The
// endpoint occasionally wraps the template in a single-element array, so
// both shapes are accepted.
func (c *Client) attachmentTemplate(ctx context.Context) (map[string]any, error) {
	query := url.Values{}
	query.Set("itemType", "attachment")
	query.Set("linkMode", "imported_file")
	resp, err := c.do(ctx, apiRequest{
		method: http.MethodGet,
		path:   "/items/new",
		query:  query,
	})
	if err != nil {
		return nil, err
	}
	var decoded any
	if body := bytes.TrimSpace(resp.body); len(body) > 0 {
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, NewUpstreamError("Unexpected Zotero response format.", map[string]any{"status": resp.status})
		}
	}
	return coerceTemplate(decoded)
}

func coerceTemplate(template any) (map[string]any, error) {
	switch v := template.(type) {
	case map[string]any:
		return v, nil
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return first, nil
			}
		}
	}
	return nil, NewUpstreamError("Unexpected Zotero template response format.", map[string]any{"type": jsonTypeName(template)})
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

// downloadFile fetches the attachment payload from a remote URL, capped
// at the configured upload limit. It returns the bytes plus filename and
// content type hints taken from the response.
func (c *Client) downloadFile(ctx context.Context, fileURL string) ([]byte, string, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", "", NewUpstreamError("Download failed.", map[string]any{"reason": err.Error()})
	}
	resp, err := c.transfer.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", "", fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil, "", "", NewUpstreamError("Download failed.", map[string]any{"reason": err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", "", NewUpstreamError("Download failed.", map[string]any{
			"status": resp.StatusCode,
			"body":   string(body),
		})
	}
	if resp.ContentLength > c.config.UploadMaxBytes {
		return nil, "", "", NewValidationError("file_url exceeds upload size limit.", map[string]any{
			"size":      resp.ContentLength,
			"max_bytes": c.config.UploadMaxBytes,
		})
	}
	fileBytes, err := readCapped(resp.Body, c.config.UploadMaxBytes, "file_url")
	if err != nil {
		if _, ok := AsAPIError(err); ok {
			return nil, "", "", err
		}
		return nil, "", "", NewUpstreamError("Download failed.", map[string]any{"reason": err.Error()})
	}

	filename := filenameFromContentDisposition(resp.Header.Get("Content-Disposition"))
	if filename == "" {
		filename = filenameFromURL(fileURL)
	}
	return fileBytes, filename, resp.Header.Get("Content-Type"), nil
}

// readCapped reads at most maxBytes from r, failing with a VALIDATION
// error once the limit is crossed.
func readCapped(r io.Reader, maxBytes int64, sourceLabel string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, NewValidationError(sourceLabel+" exceeds upload size limit.", map[string]any{
			"size":      len(data),
			"max_bytes": maxBytes,
		})
	}
	return data, nil
}

// uploadMultipart sends prefix + payload + suffix to the storage URL
// Zotero handed out. The target is external storage, so no API headers
// are attached.
func (c *Client) uploadMultipart(ctx context.Context, uploadURL, prefix, suffix string, fileBytes []byte, contentType string) error {
	payload := make([]byte, 0, len(prefix)+len(fileBytes)+len(suffix))
	payload = append(payload, prefix...)
	payload = append(payload, fileBytes...)
	payload = append(payload, suffix...)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(payload))
	if err != nil {
		return NewUpstreamError("Upload failed.", map[string]any{"reason": err.Error()})
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	resp, err := c.transfer.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return NewUpstreamError("Upload failed.", map[string]any{"reason": err.Error()})
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400:
		return statusError(resp, body)
	default:
		return NewUpstreamError("Upload failed.", map[string]any{"status": resp.StatusCode})
	}
}

// fetchArxivPDF downloads the PDF into a temp file and returns its path.
// The caller owns the file and removes it after the upload.
func (c *Client) fetchArxivPDF(ctx context.Context, pdfURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	httpReq.Header.Set("User-Agent", arxivUserAgent)
	resp, err := c.transfer.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			return "", statusError(resp, body)
		}
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"status": resp.StatusCode})
	}
	if resp.ContentLength > c.config.UploadMaxBytes {
		return "", NewValidationError("arXiv PDF exceeds upload size limit.", map[string]any{
			"size":      resp.ContentLength,
			"max_bytes": c.config.UploadMaxBytes,
		})
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, c.config.UploadMaxBytes+1))
	if err != nil {
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	if len(payload) == 0 {
		return "", NewUpstreamError("Empty arXiv PDF response.", nil)
	}
	if int64(len(payload)) > c.config.UploadMaxBytes {
		return "", NewValidationError("arXiv PDF exceeds upload size limit.", map[string]any{
			"size":      len(payload),
			"max_bytes": c.config.UploadMaxBytes,
		})
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "pdf") && !bytes.HasPrefix(payload, []byte("%PDF")) {
		return "", NewUpstreamError("arXiv response was not a PDF.", map[string]any{"content_type": contentType})
	}

	temp, err := os.CreateTemp("", "arxiv_*.pdf")
	if err != nil {
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	if _, err := temp.Write(payload); err != nil {
		temp.Close()
		os.Remove(temp.Name())
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	if err := temp.Close(); err != nil {
		os.Remove(temp.Name())
		return "", NewUpstreamError("arXiv PDF request failed.", map[string]any{"reason": err.Error()})
	}
	return temp.Name(), nil
}

// inferContentType guesses a MIME type from the filename extension.
func inferContentType(filename string) string {
	if guess := mime.TypeByExtension(filepath.Ext(filename)); guess != "" {
		if media, _, err := mime.ParseMediaType(guess); err == nil && media != "" {
			return media
		}
		return guess
	}
	return "application/octet-stream"
}

func filenameFromContentDisposition(value string) string {
	if value == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func filenameFromURL(fileURL string) string {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return ""
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
