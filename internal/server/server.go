package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/agenthands/pillguide/internal/config"
	"github.com/agenthands/pillguide/internal/core"
	"github.com/agenthands/pillguide/internal/core/model"
	"github.com/agenthands/pillguide/internal/llm"
	"github.com/agenthands/pillguide/internal/vision"
)

type Server struct {
	Pipeline       *core.Pipeline
	MaxUploadBytes int64
}

// NewServer wires the hosted services described by cfg into a pipeline.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	llmClient, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	var reader vision.TextReader
	if cfg.OCR.Enabled() {
		reader = vision.NewImageAnalysis(cfg.OCR)
	} else {
		log.Printf("OCR endpoint or key not set, surface text will not be read")
	}

	p := core.NewPipeline(vision.NewCustomVision(cfg.Vision), reader, llmClient, cfg)
	return New(p, cfg.Server.MaxUploadBytes), nil
}

func New(p *core.Pipeline, maxUploadBytes int64) *Server {
	if maxUploadBytes <= 0 {
		maxUploadBytes = config.Default().Server.MaxUploadBytes
	}
	return &Server{
		Pipeline:       p,
		MaxUploadBytes: maxUploadBytes,
	}
}

// Close releases the language model client when it holds a connection, as the Gemini
// client does.
func (s *Server) Close() error {
	if s.Pipeline == nil || s.Pipeline.Explainer == nil {
		return nil
	}
	if c, ok := s.Pipeline.Explainer.LLM.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()
	r.MaxMultipartMemory = s.MaxUploadBytes

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.POST("/analyze", s.Analyze)
	r.POST("/classify", s.Classify)
	r.POST("/reconcile", s.Reconcile)
	r.POST("/explain", s.Explain)

	return r
}

func (s *Server) Analyze(c *gin.Context) {
	img, ok := s.readImage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Pipeline.Analyze(c.Request.Context(), img))
}

func (s *Server) Classify(c *gin.Context) {
	img, ok := s.readImage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Pipeline.Classify(c.Request.Context(), img))
}

type ReconcileRequest struct {
	Candidates []model.Candidate `json:"candidates"`
	OCRText    string            `json:"ocr_text"`
}

func (s *Server) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	for _, cand := range req.Candidates {
		if cand.Probability < 0 || cand.Probability > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("probability of %q must be within [0,1]", cand.Label)})
			return
		}
	}

	d := s.Pipeline.Reconcile(c.Request.Context(), req.Candidates, req.OCRText)
	c.JSON(http.StatusOK, gin.H{"decision": d, "header": s.Pipeline.Header(d)})
}

type ExplainRequest struct {
	Label      string  `json:"label" binding:"required"`
	Confidence float64 `json:"confidence"`
	OCRText    string  `json:"ocr_text"`
}

func (s *Server) Explain(c *gin.Context) {
	var req ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	d := model.Decision{
		Label:      req.Label,
		Confidence: req.Confidence,
		OCRText:    req.OCRText,
		Source:     model.SourceClassifier,
	}
	if s.Pipeline.IsSentinel(strings.TrimSpace(req.Label)) {
		d.Source = model.SourceNone
	}
	c.JSON(http.StatusOK, gin.H{"detail": s.Pipeline.Explain(c.Request.Context(), d)})
}

// readImage accepts either a multipart form with an "image" file or the raw image as the
// request body. A missing image is not an error here; the pipeline reports it.
func (s *Server) readImage(c *gin.Context) ([]byte, bool) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		data, err = s.readFormFile(c)
	} else {
		data, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes))
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("image larger than %d bytes", s.MaxUploadBytes)})
		return nil, false
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload"})
		return nil, false
	}

	if len(data) > 0 {
		if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type " + mt.String()})
			return nil, false
		}
	}
	return data, true
}

func (s *Server) readFormFile(c *gin.Context) ([]byte, error) {
	if c.Request.ContentLength > s.MaxUploadBytes {
		return nil, &http.MaxBytesError{Limit: s.MaxUploadBytes}
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxUploadBytes)

	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Size > s.MaxUploadBytes {
		return nil, &http.MaxBytesError{Limit: s.MaxUploadBytes}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
