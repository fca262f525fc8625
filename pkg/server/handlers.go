package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/entrhq/estate/pkg/identity"
	"github.com/entrhq/estate/pkg/people"
	"github.com/entrhq/estate/pkg/recordings"
	"github.com/entrhq/estate/pkg/types"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type configResponse struct {
	ArchiveRoot           string `json:"archive_root"`
	Configured            bool   `json:"configured"`
	TranscriptionProvider string `json:"transcription_provider"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.opts.Config.Get()
	writeJSON(w, http.StatusOK, configResponse{
		ArchiveRoot:           cfg.ArchiveRoot,
		Configured:            cfg.ArchiveRoot != "",
		TranscriptionProvider: cfg.Transcription.Provider,
	})
}

type archiveRootRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleSetArchiveRoot(w http.ResponseWriter, r *http.Request) {
	var req archiveRootRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", types.ErrInvalidInput))
		return
	}
	if err := s.opts.Config.SetArchiveRoot(req.Path, s.opts.Prepare); err != nil {
		s.logger.Warnf("rejected archive root %q: %v", req.Path, err)
		writeError(w, err)
		return
	}

	root := s.opts.Config.Get().ArchiveRoot
	if s.opts.Open != nil {
		b, err := s.opts.Open(root)
		if err != nil {
			s.logger.Errorf("failed to open archive root %s: %v", root, err)
			writeError(w, err)
			return
		}
		s.swap(b)
	}
	s.logger.Infof("archive root set to %s", root)
	writeJSON(w, http.StatusOK, configResponse{
		ArchiveRoot:           root,
		Configured:            true,
		TranscriptionProvider: s.opts.Config.Get().Transcription.Provider,
	})
}

func (s *Server) handleListPeople(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := b.People.List(r.Context())
	if err != nil {
		s.logger.Errorf("list people: %v", err)
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*people.Person{}
	}
	writeJSON(w, http.StatusOK, list)
}

type createPersonRequest struct {
	FamilyName string `json:"family_name"`
	GivenName  string `json:"given_name"`
	Suffix     string `json:"suffix"`
	DOB        string `json:"dob"`
	Bio        string `json:"bio"`
}

// decodeCreate accepts a JSON body or form fields with the same names.
func decodeCreate(r *http.Request) (createPersonRequest, error) {
	var req createPersonRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, fmt.Errorf("%w: invalid request body", types.ErrInvalidInput)
		}
		return req, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return req, fmt.Errorf("%w: invalid form: %v", types.ErrInvalidInput, err)
		}
	default:
		if err := r.ParseForm(); err != nil {
			return req, fmt.Errorf("%w: invalid form: %v", types.ErrInvalidInput, err)
		}
	}
	req.FamilyName = r.FormValue("family_name")
	req.GivenName = r.FormValue("given_name")
	req.Suffix = r.FormValue("suffix")
	req.DOB = r.FormValue("dob")
	req.Bio = r.FormValue("bio")
	return req, nil
}

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := decodeCreate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := b.People.Create(r.Context(), identity.Tuple{
		Family:      req.FamilyName,
		Given:       req.GivenName,
		Suffix:      req.Suffix,
		DateOfBirth: req.DOB,
	}, req.Bio)
	if err != nil {
		s.logger.Warnf("create person: %v", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func slugParam(r *http.Request) (string, error) {
	slug, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil {
		return "", fmt.Errorf("%w: malformed slug", types.ErrInvalidInput)
	}
	return slug, nil
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	slug, err := slugParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p, ok, err := b.People.Get(r.Context(), slug)
	if err != nil {
		if errors.Is(err, types.ErrCorrupt) {
			s.logger.Errorf("corrupt record %s: %v", slug, err)
		}
		writeError(w, err)
		return
	}
	if !ok {
		writeErrorStatus(w, http.StatusNotFound, "person not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updatePersonRequest struct {
	Bio *string `json:"bio"`
}

func (s *Server) handleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	slug, err := slugParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Bio == nil {
		writeError(w, fmt.Errorf("%w: body must be {\"bio\": \"...\"}", types.ErrInvalidInput))
		return
	}
	p, err := b.People.Update(r.Context(), slug, func(p *people.Person) error {
		p.Bio = *req.Bio
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type importResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	*recordings.Result
}

func (s *Server) handleImportRecording(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseMultipartForm(s.opts.MaxUploadMemory); err != nil {
		writeError(w, fmt.Errorf("%w: expected multipart form: %v", types.ErrInvalidInput, err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	slug := r.FormValue("person_slug")
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, fmt.Errorf("%w: missing file: %v", types.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	res, err := b.Recordings.Import(r.Context(), slug, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.logger.Warnf("import %s for %s (request %s): %v", header.Filename, slug, RequestID(r.Context()), err)
		writeError(w, err)
		return
	}
	s.logger.Infof("stored %s for %s (request %s)", res.RelPath, slug, RequestID(r.Context()))
	writeJSON(w, http.StatusCreated, importResponse{Status: "success", Filename: header.Filename, Result: res})
}

type transcribeRequest struct {
	PersonSlug string `json:"person_slug"`
	Path       string `json:"path"`
}

type transcribeFailure struct {
	errorResponse
	Recording *recordings.Recording `json:"recording"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	b, err := s.current()
	if err != nil {
		writeError(w, err)
		return
	}
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", types.ErrInvalidInput))
		return
	}
	rec, err := b.Recordings.Transcribe(r.Context(), req.PersonSlug, req.Path)
	if err != nil && rec != nil {
		// The provider failed; the sidecar already records it.
		writeJSON(w, http.StatusBadGateway, transcribeFailure{
			errorResponse: errorResponse{Error: errorCode(http.StatusBadGateway), Description: rec.ErrorMessage},
			Recording:     rec,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
