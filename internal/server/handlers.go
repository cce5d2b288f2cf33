package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ricesearch/rice-chunker/internal/ast"
	"github.com/ricesearch/rice-chunker/internal/chunk"
	apperrors "github.com/ricesearch/rice-chunker/internal/pkg/errors"
	"github.com/ricesearch/rice-chunker/internal/pkg/security"
)

// ChunkRequest is the body of POST /v1/chunk. Language may be omitted when
// Path is given; the optional fields override the server's chunking config
// for this request only.
type ChunkRequest struct {
	Text             string  `json:"text"`
	Language         string  `json:"language,omitempty"`
	Path             string  `json:"path,omitempty"`
	FileID           string  `json:"file_id,omitempty"`
	MaxChunkSize     *int    `json:"max_chunk_size,omitempty"`
	ChunkOverlap     *int    `json:"chunk_overlap,omitempty"`
	MetadataTemplate *string `json:"metadata_template,omitempty"`
}

// ChunkResponse is the body of a successful POST /v1/chunk.
type ChunkResponse struct {
	FileID   string        `json:"file_id"`
	Language string        `json:"language"`
	Count    int           `json:"count"`
	Chunks   []chunk.Chunk `json:"chunks"`
}

// config applies the request overrides to base.
func (req *ChunkRequest) config(base chunk.Config) chunk.Config {
	cfg := base
	if req.MaxChunkSize != nil {
		cfg.MaxChunkSize = *req.MaxChunkSize
	}
	if req.ChunkOverlap != nil {
		cfg.ChunkOverlap = *req.ChunkOverlap
	}
	if req.MetadataTemplate != nil {
		cfg.MetadataTemplate = chunk.Template(*req.MetadataTemplate)
	}
	return cfg
}

// document resolves the language and file id.
func (req *ChunkRequest) document() (chunk.SourceDocument, error) {
	lang := req.Language
	if lang == "" && req.Path != "" {
		lang = ast.DetectLanguage(req.Path)
	}
	if lang == "" {
		return chunk.SourceDocument{}, apperrors.InvalidRequestError("language or path is required")
	}

	fileID := req.FileID
	if fileID == "" {
		fileID = req.Path
	}
	return chunk.SourceDocument{Text: req.Text, Language: lang, FileID: fileID}, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": s.chunker.Registry().Languages(),
	})
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBody)

	var req ChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.WriteJSON(w, http.StatusRequestEntityTooLarge, apperrors.ErrorResponse{
				Error: "request body too large",
				Code:  apperrors.CodeInvalidRequest,
			})
			return
		}
		apperrors.WriteError(w, apperrors.InvalidRequestError("invalid JSON body: "+err.Error()))
		return
	}

	doc, err := req.document()
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	start := time.Now()
	chunks, err := s.chunker.ChunkWith(r.Context(), doc, req.config(s.chunker.Config()))
	s.metrics.RecordChunk(s.languageLabel(doc.Language), time.Since(start), chunks, err)
	if err != nil {
		s.log.WithFile(security.SanitizeForLog(doc.FileID)).Debug("Chunk request failed", "language", doc.Language, "error", err)
		apperrors.WriteError(w, err)
		return
	}
	if chunks == nil {
		chunks = []chunk.Chunk{}
	}

	writeJSON(w, http.StatusOK, ChunkResponse{
		FileID:   doc.FileID,
		Language: ast.Normalize(doc.Language),
		Count:    len(chunks),
		Chunks:   chunks,
	})
}

// languageLabel bounds the language metric label to registered languages.
func (s *Server) languageLabel(language string) string {
	if s.chunker.Registry().Supports(language) {
		return ast.Normalize(language)
	}
	return "unsupported"
}
