package server

import "github.com/google/jsonschema-go/jsonschema"

// Range and length constraints are deliberately absent from the input
// schemas: those checks run in the validators so violations come back as
// structured VALIDATION envelopes instead of protocol-level rejections.

func falseSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Not: &jsonschema.Schema{}}
}

func stringType() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string"}
}

func integerType() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer"}
}

func stringArrayType() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: stringType()}
}

func inputSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties:           properties,
		Required:             required,
	}
}

func dataSchema(properties map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Types:      []string{"object", "null"},
		Properties: properties,
	}
}

// envelopeSchema wraps a data payload schema in the shared result
// envelope: ok plus a payload on success or a structured error on
// failure, never both.
func envelopeSchema(data *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"ok":   {Type: "boolean"},
			"data": data,
			"error": {
				Types: []string{"object", "null"},
				Properties: map[string]*jsonschema.Schema{
					"code":    stringType(),
					"message": stringType(),
					"details": {Type: "object"},
				},
			},
		},
		Required: []string{"ok", "data", "error"},
	}
}

func listCollectionsInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"limit": integerType(),
		"start": integerType(),
	})
}

func listCollectionsOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(map[string]*jsonschema.Schema{
		"collections": {Type: "array"},
		"total":       integerType(),
		"next_start":  integerType(),
	}))
}

func searchItemsInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"query":  stringType(),
		"limit":  integerType(),
		"sort":   stringType(),
		"start":  integerType(),
		"offset": integerType(),
		"tags":   stringArrayType(),
	}, "query")
}

func searchItemsOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(map[string]*jsonschema.Schema{
		"items":      {Type: "array"},
		"total":      integerType(),
		"next_start": integerType(),
		"sort_used":  stringType(),
	}))
}

func sortValuesInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{})
}

func sortValuesOutputSchema() *jsonschema.Schema {
	data := dataSchema(map[string]*jsonschema.Schema{
		"values":   stringArrayType(),
		"default":  stringType(),
		"fallback": stringType(),
	})
	data.AdditionalProperties = falseSchema()
	data.Required = []string{"values", "default", "fallback"}
	return envelopeSchema(data)
}

func getItemInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"item_key": stringType(),
	}, "item_key")
}

func getItemOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(map[string]*jsonschema.Schema{
		"item": {Type: "object"},
	}))
}

func createItemInputSchema() *jsonschema.Schema {
	creator := &jsonschema.Schema{
		Type:                 "object",
		AdditionalProperties: falseSchema(),
		Properties: map[string]*jsonschema.Schema{
			"creator_type": stringType(),
			"name":         stringType(),
			"first_name":   stringType(),
			"last_name":    stringType(),
		},
		Required: []string{"creator_type"},
	}
	return inputSchema(map[string]*jsonschema.Schema{
		"item_type": stringType(),
		"title":     stringType(),
		"creators":  {Type: "array", Items: creator},
		"date":      stringType(),
		"doi":       stringType(),
		"url":       stringType(),
		"abstract":  stringType(),
		"tags":      stringArrayType(),
		"extra":     stringType(),
	}, "item_type", "title")
}

func createItemOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(map[string]*jsonschema.Schema{
		"item_key": stringType(),
		"version":  integerType(),
		"item":     {Type: "object"},
	}))
}

func uploadResultProperties() map[string]*jsonschema.Schema {
	return map[string]*jsonschema.Schema{
		"attachment_key":  stringType(),
		"parent_item_key": stringType(),
		"title":           stringType(),
		"content_type":    stringType(),
		"size":            integerType(),
		"version":         integerType(),
	}
}

func uploadAttachmentInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"item_key":          stringType(),
		"file_path":         stringType(),
		"file_url":          stringType(),
		"file_bytes_base64": stringType(),
		"filename":          stringType(),
		"title":             stringType(),
		"content_type":      stringType(),
	}, "item_key")
}

func uploadAttachmentOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(uploadResultProperties()))
}

func attachArxivInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"item_key": stringType(),
		"arxiv_id": stringType(),
		"title":    stringType(),
	}, "item_key", "arxiv_id")
}

func attachArxivOutputSchema() *jsonschema.Schema {
	properties := uploadResultProperties()
	properties["arxiv_id"] = stringType()
	properties["pdf_url"] = stringType()
	return envelopeSchema(dataSchema(properties))
}

func addToCollectionInputSchema() *jsonschema.Schema {
	return inputSchema(map[string]*jsonschema.Schema{
		"item_key":        stringType(),
		"collection_key":  stringType(),
		"collection_name": stringType(),
	}, "item_key")
}

func addToCollectionOutputSchema() *jsonschema.Schema {
	return envelopeSchema(dataSchema(map[string]*jsonschema.Schema{
		"item_key":       stringType(),
		"collection_key": stringType(),
	}))
}
