package pdfextract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/yungbote/docchat-backend/internal/platform/logger"
)

// Page holds the plain text of one PDF page. PageNumber is 1-based.
type Page struct {
	PageNumber int
	Text       string
}

type ErrorCode string

const (
	ErrorCodeCorruptFile  ErrorCode = "corrupt_file"
	ErrorCodeNoText       ErrorCode = "no_extractable_text"
	ErrorCodePageFailed   ErrorCode = "page_extraction_failed"
	ErrorCodeEmptyPayload ErrorCode = "empty_payload"
)

type ExtractionError struct {
	Code    ErrorCode
	Page    int
	Message string
	Cause   error
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return "pdf extraction failed"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Page > 0 {
		return fmt.Sprintf("pdf extraction failed (code=%s page=%d): %s", e.Code, e.Page, msg)
	}
	return fmt.Sprintf("pdf extraction failed (code=%s): %s", e.Code, msg)
}

func (e *ExtractionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Extractor turns a PDF byte payload into per-page plain text.
type Extractor interface {
	Extract(data []byte) ([]Page, error)
}

type extractor struct {
	log *logger.Logger
}

func NewExtractor(baseLog *logger.Logger) (Extractor, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &extractor{log: baseLog.With("service", "PDFExtractor")}, nil
}

func (e *extractor) Extract(data []byte) (pages []Page, err error) {
	if len(data) == 0 {
		return nil, &ExtractionError{Code: ErrorCodeEmptyPayload, Message: "empty file"}
	}
	// The parser panics on some malformed files instead of returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &ExtractionError{Code: ErrorCodeCorruptFile, Message: fmt.Sprintf("parser panic: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ExtractionError{Code: ErrorCodeCorruptFile, Message: "unreadable pdf", Cause: err}
	}

	total := reader.NumPage()
	pages = make([]Page, 0, total)
	extracted := 0
	for i := 1; i <= total; i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{PageNumber: i})
			continue
		}
		text, perr := p.GetPlainText(nil)
		if perr != nil {
			// A single bad page does not sink the document; it just yields
			// no text for that page.
			e.log.Warn("page extraction failed", "page", i, "error", perr)
			pages = append(pages, Page{PageNumber: i})
			continue
		}
		if strings.TrimSpace(text) != "" {
			extracted++
		}
		pages = append(pages, Page{PageNumber: i, Text: text})
	}
	if extracted == 0 {
		return nil, &ExtractionError{Code: ErrorCodeNoText, Message: "document contains no extractable text"}
	}
	return pages, nil
}
