// Package editor implements the in-browser editor's save and discard
// workflow and the ajax action manager it is exposed through.
package editor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/document"
	"github.com/gogotex/pagebuilder/internal/hooks"
)

// Resolver finds the document bound to a content. Implemented by
// document.Registry.
type Resolver interface {
	Resolve(c *content.Content, fresh bool) (document.Document, error)
}

// SaveRequest is what the editor posts. Elements and Settings are
// serialized JSON.
type SaveRequest struct {
	Status   content.Status
	Elements string
	Settings string
}

// SaveReturn is threaded through the return-data filter.
type SaveReturn struct {
	Data     map[string]any
	Document document.Document
}

type Service struct {
	docs       Resolver
	returnData *hooks.Filter[SaveReturn]
}

func NewService(docs Resolver) *Service {
	return &Service{
		docs:       docs,
		returnData: hooks.NewFilter[SaveReturn]("documents/ajax_save/return_data"),
	}
}

// ReturnData lets other packages extend the save response.
func (s *Service) ReturnData() *hooks.Filter[SaveReturn] { return s.returnData }

// Save applies the editor's changes to c. The status defaults to revision;
// the document only receives elements and settings.
func (s *Service) Save(ctx context.Context, req SaveRequest, c *content.Content) (map[string]any, error) {
	status := req.Status
	if status == "" {
		status = content.StatusRevision
	}
	c.Status = status

	doc, err := s.docs.Resolve(c, false)
	if err != nil {
		return nil, err
	}
	elements, settings := req.Elements, req.Settings
	if err := doc.Save(ctx, document.Data{Elements: &elements, Settings: &settings}); err != nil {
		return nil, err
	}

	data := map[string]any{
		"config": map[string]any{
			"document": map[string]any{
				"last_edited": doc.LastEdited(ctx),
				"date":        c.UpdatedAt.Format(time.RFC3339),
				"urls": map[string]any{
					"preview": doc.PreviewURL(),
				},
			},
		},
	}
	return s.returnData.Apply(SaveReturn{Data: data, Document: doc}).Data, nil
}

// DiscardChanges reports whether unsaved changes were discarded. There is
// no autosave to restore from, so it always reports false.
func (s *Service) DiscardChanges(context.Context, *content.Content) bool {
	return false
}

// RegisterActions adds save_builder and discard_changes to a.
func (s *Service) RegisterActions(a *Ajax) {
	a.RegisterAction("save_builder", "save", func(ctx context.Context, raw json.RawMessage, c *content.Content) (any, error) {
		req, err := decodeSaveRequest(raw)
		if err != nil {
			return nil, err
		}
		return s.Save(ctx, req, c)
	})
	a.RegisterAction("discard_changes", "", func(ctx context.Context, _ json.RawMessage, c *content.Content) (any, error) {
		return s.DiscardChanges(ctx, c), nil
	})
}

// decodeSaveRequest accepts elements and settings either as JSON values or
// as JSON-encoded strings.
func decodeSaveRequest(raw json.RawMessage) (SaveRequest, error) {
	var in struct {
		Status   string          `json:"status"`
		Elements json.RawMessage `json:"elements"`
		Settings json.RawMessage `json:"settings"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &in); err != nil {
			return SaveRequest{}, content.Invalidf("malformed save data: %v", err)
		}
	}
	elements, err := jsonText(in.Elements)
	if err != nil {
		return SaveRequest{}, content.Invalidf("malformed elements: %v", err)
	}
	settings, err := jsonText(in.Settings)
	if err != nil {
		return SaveRequest{}, content.Invalidf("malformed settings: %v", err)
	}
	return SaveRequest{Status: content.Status(in.Status), Elements: elements, Settings: settings}, nil
}

func jsonText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		if s != "" && !json.Valid([]byte(s)) {
			return "", content.Invalidf("not a JSON document")
		}
		return s, nil
	}
	return string(raw), nil
}
