package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	sourcesv1 "github.com/jdholdren/stockroom/api/sources/v1"
	srerrs "github.com/jdholdren/stockroom/internal/errors"
	"github.com/jdholdren/stockroom/internal/importer"
	"github.com/jdholdren/stockroom/internal/serverutil"
	"github.com/jdholdren/stockroom/internal/stockroom"
)

const importQueuedMessage = "import job has been queued"

func toSourceResp(src stockroom.Source) sourcesv1.Source {
	return sourcesv1.Source{
		ID:                  src.ID,
		Name:                src.Name,
		URL:                 src.URL,
		IsActive:            src.IsActive,
		ImportIntervalHours: src.ImportIntervalHours,
		PreferredImportTime: src.PreferredImportTime,
		LastImportedAt:      src.LastImportedAt,
		LastImportedCount:   src.LastImportedCount,
		LastError:           src.LastError,
		CreatedAt:           src.CreatedAt,
		UpdatedAt:           src.UpdatedAt,
	}
}

func (s Server) getSources(w http.ResponseWriter, r *http.Request) error {
	sources, err := s.repo.Sources(r.Context())
	if err != nil {
		return err
	}

	resp := sourcesv1.ListSourcesResponse{Sources: make([]sourcesv1.Source, 0, len(sources))}
	for _, src := range sources {
		resp.Sources = append(resp.Sources, toSourceResp(src))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func (s Server) getSource(w http.ResponseWriter, r *http.Request) error {
	src, err := s.source(r)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, toSourceResp(src))
}

func (s Server) postSource(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[sourcesv1.CreateSourceRequest](r.Body)
	if err != nil {
		return err
	}

	args := stockroom.InsertSourceArgs{
		Name:                req.Name,
		URL:                 req.URL,
		IsActive:            true,
		ImportIntervalHours: stockroom.DefaultImportIntervalHours,
	}
	if req.IsActive != nil {
		args.IsActive = *req.IsActive
	}
	if req.ImportIntervalHours != nil {
		args.ImportIntervalHours = *req.ImportIntervalHours
	}
	if req.PreferredImportTime != nil && *req.PreferredImportTime != "" {
		// Already validated
		normalized, _ := stockroom.ParseTimeOfDay(*req.PreferredImportTime)
		args.PreferredImportTime = &normalized
	}

	src, err := s.repo.InsertSource(r.Context(), args)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, toSourceResp(src))
}

func (s Server) patchSource(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[sourcesv1.UpdateSourceRequest](r.Body)
	if err != nil {
		return err
	}

	args := stockroom.UpdateSourceArgs{
		Name:                req.Name,
		URL:                 req.URL,
		IsActive:            req.IsActive,
		ImportIntervalHours: req.ImportIntervalHours,
	}
	if req.PreferredImportTime != nil {
		if *req.PreferredImportTime == "" {
			args.ClearPreferredImportTime = true
		} else {
			normalized, _ := stockroom.ParseTimeOfDay(*req.PreferredImportTime)
			args.PreferredImportTime = &normalized
		}
	}

	src, err := s.repo.UpdateSource(r.Context(), mux.Vars(r)["sourceID"], args)
	if errors.Is(err, stockroom.ErrNotFound) {
		return srerrs.E(http.StatusNotFound, "source not found")
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, toSourceResp(src))
}

func (s Server) deleteSource(w http.ResponseWriter, r *http.Request) error {
	err := s.repo.DeleteSource(r.Context(), mux.Vars(r)["sourceID"])
	if errors.Is(err, stockroom.ErrNotFound) {
		return srerrs.E(http.StatusNotFound, "source not found")
	}
	if err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Queues an import of the source. The outcome only shows up on the source later.
func (s Server) postSourceImport(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[sourcesv1.ImportRequest](r.Body)
	if err != nil {
		return err
	}

	src, err := s.source(r)
	if err != nil {
		return err
	}
	if !src.IsActive {
		return srerrs.E(http.StatusBadRequest, "source is not active")
	}

	err = s.dispatcher.Dispatch(r.Context(), importer.Request{SourceID: src.ID, ActorID: req.AdminID})
	if errors.Is(err, importer.ErrAlreadyRunning) {
		return srerrs.E(http.StatusConflict, err)
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusAccepted, sourcesv1.ImportResponse{Message: importQueuedMessage})
}

func (s Server) source(r *http.Request) (stockroom.Source, error) {
	src, err := s.repo.Source(r.Context(), mux.Vars(r)["sourceID"])
	if errors.Is(err, stockroom.ErrNotFound) {
		return stockroom.Source{}, srerrs.E(http.StatusNotFound, "source not found")
	}

	return src, err
}
