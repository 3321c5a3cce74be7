package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"BerryBox/config"
	"BerryBox/core/cover"
	"BerryBox/core/player"
	"BerryBox/logger"
	"BerryBox/model"
	"BerryBox/repository"
)

// APIHandler carries the wired components for all HTTP endpoints.
type APIHandler struct {
	controller *player.Controller
	agg        *player.Aggregator
	repo       repository.CatalogRepository
	covers     *cover.Collector
	hub        *Hub
	cfg        *config.Config
}

// NewAPIHandler creates the handler set.
func NewAPIHandler(
	controller *player.Controller,
	agg *player.Aggregator,
	repo repository.CatalogRepository,
	covers *cover.Collector,
	hub *Hub,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		controller: controller,
		agg:        agg,
		repo:       repo,
		covers:     covers,
		hub:        hub,
		cfg:        cfg,
	}
}

// PlayHandler starts playback of a context, resuming where possible.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req model.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URI) == "" {
		writeError(w, http.StatusBadRequest, "uri is required")
		return
	}

	result := h.controller.Play(&req)
	writeJSON(w, http.StatusOK, result)
	h.hub.Notify()
}

// PauseHandler pauses playback.
func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Pause())
	h.hub.Notify()
}

// ResumeHandler resumes playback.
func (h *APIHandler) ResumeHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Resume())
	h.hub.Notify()
}

// NextHandler skips forward.
func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Next())
}

// PrevHandler skips backward.
func (h *APIHandler) PrevHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.Prev())
}

// SeekHandler seeks within the current track.
func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req model.SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Position < 0 {
		writeError(w, http.StatusBadRequest, "position must be non-negative")
		return
	}
	writeJSON(w, http.StatusOK, h.controller.Seek(req.Position))
}

// VolumeHandler sets the daemon volume level.
func (h *APIHandler) VolumeHandler(w http.ResponseWriter, r *http.Request) {
	var req model.VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Level < 0 || req.Level > 100 {
		writeError(w, http.StatusBadRequest, "level must be between 0 and 100")
		return
	}
	writeJSON(w, http.StatusOK, h.controller.SetVolume(req.Level))
}

// NowPlayingHandler returns the current snapshot.
func (h *APIHandler) NowPlayingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.agg.Snapshot())
}

// GetCatalogHandler lists the saved items.
func (h *APIHandler) GetCatalogHandler(w http.ResponseWriter, r *http.Request) {
	items := h.repo.Items()
	if items == nil {
		items = []*model.CatalogItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetCatalogItemHandler returns a single item by id.
func (h *APIHandler) GetCatalogItemHandler(w http.ResponseWriter, r *http.Request) {
	item := h.repo.ItemByID(mux.Vars(r)["id"])
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// SaveCatalogItemHandler saves an album or playlist to the catalog.
// A remote cover URL is mirrored locally; a temp cover already stored
// for the context is promoted instead of re-downloaded.
func (h *APIHandler) SaveCatalogItemHandler(w http.ResponseWriter, r *http.Request) {
	var req model.SaveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URI) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "uri and name are required")
		return
	}
	if req.Type != model.ItemTypeAlbum && req.Type != model.ItemTypePlaylist {
		writeError(w, http.StatusBadRequest, "type must be album or playlist")
		return
	}

	localImage := ""
	if req.Image != "" {
		if strings.HasPrefix(req.Image, "/images/") {
			promoted, err := h.covers.Promote(req.Image)
			if err == nil {
				localImage = promoted
			} else {
				logger.Warn("cover promotion failed", logger.ErrorField(err))
				localImage = req.Image
			}
		} else {
			stored, err := h.covers.StoreRemote(req.Image, false)
			if err != nil {
				logger.Warn("cover mirror failed",
					logger.String("url", req.Image),
					logger.ErrorField(err))
			} else {
				localImage = stored
			}
		}
	}

	item, err := h.repo.SaveItem(&req, localImage)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateURI) {
			writeError(w, http.StatusConflict, "item already saved")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// DeleteCatalogItemHandler removes an item and its unused images.
func (h *APIHandler) DeleteCatalogItemHandler(w http.ResponseWriter, r *http.Request) {
	item, err := h.repo.DeleteItem(mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	removed := h.covers.CleanupUnused()
	if removed > 0 {
		logger.Info("removed orphaned covers", logger.Int("count", removed))
	}
	writeJSON(w, http.StatusOK, item)
}

// GetProgressHandler lists resume records, or one record when a uri is
// given. Inspection reads from the catalog items and never consumes the
// record the way a play-path read does.
func (h *APIHandler) GetProgressHandler(w http.ResponseWriter, r *http.Request) {
	if uri, ok := mux.Vars(r)["uri"]; ok {
		item := h.repo.ItemByURI(uri)
		if item == nil || item.CurrentTrack == nil {
			writeError(w, http.StatusNotFound, "no resume record")
			return
		}
		writeJSON(w, http.StatusOK, item.CurrentTrack)
		return
	}

	records := make(map[string]*model.ResumeRecord)
	for _, item := range h.repo.Items() {
		if item.CurrentTrack != nil {
			records[item.URI] = item.CurrentTrack
		}
	}
	writeJSON(w, http.StatusOK, records)
}

// DeleteProgressHandler clears the resume record for a context.
func (h *APIHandler) DeleteProgressHandler(w http.ResponseWriter, r *http.Request) {
	uri := mux.Vars(r)["uri"]
	if err := h.repo.ClearProgress(uri); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear progress")
		return
	}
	writeJSON(w, http.StatusOK, &model.SimpleResult{Success: true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("response encode failed", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
