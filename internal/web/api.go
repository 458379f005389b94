package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AO-5002/piecewall/internal/errors"
	"github.com/AO-5002/piecewall/internal/ops"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// AddPieceRequest is the body of POST /api/rooms/{room}/pieces.
type AddPieceRequest struct {
	Text  string `json:"text"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdatePieceRequest is the body of PATCH /api/rooms/{room}/pieces/{id}.
// At least one field must be present.
type UpdatePieceRequest struct {
	Text  *string `json:"text" validate:"required_without=Color"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

// UpdatePieceResponse reports what a PATCH changed.
type UpdatePieceResponse struct {
	Room      string `json:"room"`
	ID        string `json:"id"`
	Updated   bool   `json:"updated"`
	Recolored bool   `json:"recolored"`
	Version   int64  `json:"version"`
}

// APIListRooms handles GET /api/rooms.
func (h *Handlers) APIListRooms(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListRooms(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIGetWall handles GET /api/rooms/{room}.
func (h *Handlers) APIGetWall(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Get(r.Context(), ops.GetInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIStatus handles GET /api/rooms/{room}/status.
func (h *Handlers) APIStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Get(r.Context(), ops.GetInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"room":     result.Room,
		"version":  result.Version,
		"status":   result.Status,
		"presence": h.hub.Presence(result.Room),
	})
}

// APIAddPiece handles POST /api/rooms/{room}/pieces.
func (h *Handlers) APIAddPiece(w http.ResponseWriter, r *http.Request) {
	var body AddPieceRequest
	if err := h.decodeBody(r, &body, true); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.svc.Add(r.Context(), ops.AddInput{
		Room:  r.PathValue("room"),
		Text:  body.Text,
		Color: body.Color,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// APIUpdatePiece handles PATCH /api/rooms/{room}/pieces/{id}. Text and color
// land in one write; an unknown id leaves both unchanged.
func (h *Handlers) APIUpdatePiece(w http.ResponseWriter, r *http.Request) {
	var body UpdatePieceRequest
	if err := h.decodeBody(r, &body, false); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := h.svc.Edit(r.Context(), ops.EditInput{
		Room:  r.PathValue("room"),
		ID:    r.PathValue("id"),
		Text:  body.Text,
		Color: body.Color,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, UpdatePieceResponse{
		Room:      result.Room,
		ID:        result.ID,
		Updated:   result.Updated,
		Recolored: result.Recolored,
		Version:   result.Version,
	})
}

// APIDeletePiece handles DELETE /api/rooms/{room}/pieces/{id}.
func (h *Handlers) APIDeletePiece(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Delete(r.Context(), ops.DeleteInput{
		Room: r.PathValue("room"),
		ID:   r.PathValue("id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIDuplicatePiece handles POST /api/rooms/{room}/pieces/{id}/duplicate.
func (h *Handlers) APIDuplicatePiece(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Duplicate(r.Context(), ops.DuplicateInput{
		Room: r.PathValue("room"),
		ID:   r.PathValue("id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Piece != nil {
		status = http.StatusCreated
	}
	renderJSON(w, status, result)
}

// APIConsolidate handles POST /api/rooms/{room}/consolidate.
func (h *Handlers) APIConsolidate(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Consolidate(r.Context(), ops.ConsolidateInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APIClear handles DELETE /api/rooms/{room}/pieces.
func (h *Handlers) APIClear(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Clear(r.Context(), ops.ClearInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// APISeed handles POST /api/rooms/{room}/seed.
func (h *Handlers) APISeed(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Seed(r.Context(), ops.SeedInput{Room: r.PathValue("room")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// decodeBody reads a JSON body into dst and validates it. An empty body is
// accepted only when allowEmpty is set.
func (h *Handlers) decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF && allowEmpty {
			return h.validateStruct(dst)
		}
		if err == io.EOF {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errors.NewInvalidRequest("request body must be a single JSON object")
	}
	return h.validateStruct(dst)
}

// validateStruct turns validator failures into INVALID_REQUEST.
func (h *Handlers) validateStruct(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.NewInternal(err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "hexcolor":
			msgs = append(msgs, field+" must be a hex color like #bacded")
		case "required_without":
			msgs = append(msgs, "one of text or color is required")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.NewInvalidRequest(strings.Join(msgs, "; "))
}
