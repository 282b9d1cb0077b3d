package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rezonia/fattura-processor/internal/signature"
	"github.com/rezonia/fattura-processor/pkg/fatturalib"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Time:         time.Now().UTC().Format(time.RFC3339),
		Capabilities: s.proc.Capabilities(),
	})
}

func (s *Server) handleDetect(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	det, err := s.proc.DetectDetailed(ctx, string(body))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, DetectResponse{
		SubType:  det.SubType,
		Phase:    string(det.Phase),
		Schema:   det.Schema,
		Versione: det.Versione,
		Tried:    det.Tried,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	doc, ctx, cancel, ok := s.openDocument(c)
	if !ok {
		return
	}
	defer cancel()

	result, err := s.proc.Validate(ctx, doc)
	if err != nil {
		s.fail(c, err)
		return
	}

	// an Invalid verdict is a successful validation
	c.JSON(http.StatusOK, ValidationResponse{
		SubType:          doc.SubType(),
		Valid:            result.IsValid(),
		ValidationResult: result,
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	doc, _, cancel, ok := s.openDocument(c)
	if !ok {
		return
	}
	defer cancel()

	sum, err := s.proc.Summarize(doc)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, InfoResponse{
		Size:    len(doc.Raw()),
		Root:    doc.RootName(),
		Summary: sum,
	})
}

func (s *Server) handleRenderJSON(c *gin.Context) {
	doc, _, cancel, ok := s.openDocument(c)
	if !ok {
		return
	}
	defer cancel()

	out, err := s.proc.ToJSON(doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", out)
}

func (s *Server) handleRenderHTML(c *gin.Context) {
	doc, ctx, cancel, ok := s.openDocument(c)
	if !ok {
		return
	}
	defer cancel()

	page, err := s.proc.ToHTML(ctx, doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (s *Server) handleRenderPDF(c *gin.Context) {
	doc, ctx, cancel, ok := s.openDocument(c)
	if !ok {
		return
	}
	defer cancel()

	out, err := s.proc.ToPDF(ctx, doc)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="fattura.pdf"`)
	c.Data(http.StatusOK, "application/pdf", out)
}

func (s *Server) handleVerify(c *gin.Context) {
	body, ok := s.readBody(c)
	if !ok {
		return
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.proc.VerifySignature(ctx, body)
	if err != nil {
		var sigErr *signature.SignatureError
		status := http.StatusInternalServerError
		if errors.As(err, &sigErr) {
			status = http.StatusUnprocessableEntity
			if sigErr.Code == signature.ErrCodeUnsupportedFormat {
				status = http.StatusUnsupportedMediaType
			}
		}
		resp := s.errorResponse(c, err, "signature")
		if result != nil {
			resp.Warnings = result.Warnings
		}
		c.JSON(status, resp)
		return
	}

	if result.Valid {
		c.JSON(http.StatusOK, result)
	} else {
		c.JSON(http.StatusUnprocessableEntity, result)
	}
}

// readBody returns the request body, answering the request itself when the
// body is missing or too large
func (s *Server) readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, s.errorResponse(c, err, "request"))
			return nil, false
		}
		c.JSON(http.StatusBadRequest, s.errorResponse(c, errors.New("failed to read request body"), "request"))
		return nil, false
	}

	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, s.errorResponse(c, errors.New("empty request body"), "request"))
		return nil, false
	}
	return body, true
}

// openDocument parses and classifies the request body
func (s *Server) openDocument(c *gin.Context) (*fatturalib.Document, context.Context, context.CancelFunc, bool) {
	body, ok := s.readBody(c)
	if !ok {
		return nil, nil, nil, false
	}

	ctx, cancel := s.requestContext(c)
	doc, err := s.proc.Open(ctx, string(body))
	if err != nil {
		cancel()
		s.fail(c, err)
		return nil, nil, nil, false
	}
	return doc, ctx, cancel, true
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.config.RequestTimeout)
}

func (s *Server) fail(c *gin.Context, err error) {
	status, kind := classify(err)
	c.JSON(status, s.errorResponse(c, err, kind))
}

func (s *Server) errorResponse(c *gin.Context, err error, kind string) ErrorResponse {
	resp := ErrorResponse{
		Error:     err.Error(),
		Kind:      kind,
		RequestID: c.GetString(requestIDKey),
	}
	var ufe *fatturalib.UnrecognizedFormatError
	if errors.As(err, &ufe) {
		resp.Tried = ufe.Tried
	}
	return resp
}

// classify maps processing errors to HTTP statuses
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, fatturalib.ErrParse):
		return http.StatusBadRequest, "parse"
	case errors.Is(err, fatturalib.ErrPrecondition):
		return http.StatusConflict, "precondition"
	case errors.Is(err, fatturalib.ErrUnrecognizedFormat):
		return http.StatusUnprocessableEntity, "unrecognized_format"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, fatturalib.ErrValidationUnavailable):
		return http.StatusServiceUnavailable, "validation_unavailable"
	case errors.Is(err, fatturalib.ErrResourceNotFound):
		return http.StatusInternalServerError, "resource_not_found"
	case errors.Is(err, fatturalib.ErrTransformationFailed):
		return http.StatusBadGateway, "transformation_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
