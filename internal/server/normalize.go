package server

import "github.com/Sternrassler/zotero-mcp/pkg/zotero"

// Creator is the caller-facing creator shape. A creator has either a
// single display name or a first/last pair, never both.
type Creator struct {
	CreatorType string `json:"creator_type"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
}

// Item is the caller-facing item shape. Every key is always present so
// clients can index without probing; creators and tags are never null.
type Item struct {
	ItemKey  string    `json:"item_key"`
	ItemType string    `json:"item_type"`
	Title    string    `json:"title"`
	Creators []Creator `json:"creators"`
	Date     string    `json:"date"`
	DOI      string    `json:"doi"`
	URL      string    `json:"url"`
	Abstract string    `json:"abstract"`
	Tags     []string  `json:"tags"`
	Extra    string    `json:"extra"`
	Version  int       `json:"version"`
}

// ItemDetail is an Item plus its attachment children. The attachments key
// is always present, even when empty.
type ItemDetail struct {
	Item
	Attachments []Attachment `json:"attachments"`
}

// Attachment is the caller-facing shape of an attachment child.
type Attachment struct {
	AttachmentKey string `json:"attachment_key"`
	Title         string `json:"title"`
	ContentType   string `json:"content_type,omitempty"`
	Size          *int64 `json:"size,omitempty"`
}

// Collection is the caller-facing collection shape. ParentKey mirrors
// parentCollection: false for top-level collections, otherwise the parent
// key string. A missing value becomes the empty string.
type Collection struct {
	CollectionKey string `json:"collection_key"`
	Name          string `json:"name"`
	ParentKey     any    `json:"parent_key"`
	Version       int    `json:"version"`
	NumItems      *int   `json:"num_items,omitempty"`
}

func normalizeCreators(creators []zotero.Creator) []Creator {
	out := make([]Creator, 0, len(creators))
	for _, creator := range creators {
		if creator.CreatorType == "" {
			continue
		}
		entry := Creator{CreatorType: creator.CreatorType}
		if creator.Name != "" {
			entry.Name = creator.Name
		} else {
			entry.FirstName = creator.FirstName
			entry.LastName = creator.LastName
		}
		out = append(out, entry)
	}
	return out
}

func normalizeTags(tags []zotero.Tag) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Tag != "" {
			out = append(out, tag.Tag)
		}
	}
	return out
}

func normalizeItem(item zotero.Item) Item {
	return Item{
		ItemKey:  item.Key,
		ItemType: item.Data.ItemType,
		Title:    item.Data.Title,
		Creators: normalizeCreators(item.Data.Creators),
		Date:     item.Data.Date,
		DOI:      item.Data.DOI,
		URL:      item.Data.URL,
		Abstract: item.Data.AbstractNote,
		Tags:     normalizeTags(item.Data.Tags),
		Extra:    item.Data.Extra,
		Version:  item.Version,
	}
}

func normalizeItems(items []zotero.Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, normalizeItem(item))
	}
	return out
}

// normalizeAttachment converts an item child into the attachment shape.
// Children that are not attachments report false. The size comes from
// fileSize when set, falling back to the legacy size field.
func normalizeAttachment(item zotero.Item) (Attachment, bool) {
	if item.Data.ItemType != "attachment" {
		return Attachment{}, false
	}

	attachment := Attachment{
		AttachmentKey: item.Key,
		Title:         item.Data.Title,
		ContentType:   item.Data.ContentType,
	}
	if item.Data.FileSize != nil {
		attachment.Size = item.Data.FileSize
	} else {
		attachment.Size = item.Data.Size
	}
	return attachment, true
}

func normalizeAttachments(children []zotero.Item) []Attachment {
	out := make([]Attachment, 0, len(children))
	for _, child := range children {
		if attachment, ok := normalizeAttachment(child); ok {
			out = append(out, attachment)
		}
	}
	return out
}

func normalizeCollection(collection zotero.Collection) Collection {
	parent := collection.Data.ParentCollection
	if parent == nil {
		parent = ""
	}
	return Collection{
		CollectionKey: collection.Key,
		Name:          collection.Data.Name,
		ParentKey:     parent,
		Version:       collection.Version,
		NumItems:      collection.Meta.NumItems,
	}
}

func normalizeCollections(collections []zotero.Collection) []Collection {
	out := make([]Collection, 0, len(collections))
	for _, collection := range collections {
		out = append(out, normalizeCollection(collection))
	}
	return out
}
