package export

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"Strata/internal/logger"
	"Strata/internal/soil"
	"Strata/internal/validate"
)

var (
	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrNoStrata           = errors.New("no strata layers")
	ErrStratumNotFound    = errors.New("stratum not found")
)

// ValidationError refuses an export and carries every diagnostic from the pass.
type ValidationError struct {
	Results []validate.Result
}

func (e *ValidationError) Error() string {
	var errs []string
	for _, r := range e.Results {
		if r.Severity == validate.Error || r.Severity == validate.Critical {
			errs = append(errs, r.String())
		}
	}
	return fmt.Sprintf("export refused: %s: %s", validate.Summary(e.Results), strings.Join(errs, "; "))
}

type Options struct {
	Compress bool
}

type Exporter struct {
	Now func() time.Time
	log *slog.Logger
}

func NewExporter() *Exporter {
	return &Exporter{Now: time.Now, log: logger.ForComponent("export")}
}

func (e *Exporter) metadata(kind string) Metadata {
	return Metadata{ExportDate: e.Now().UTC(), ExporterVersion: Version, ExportType: kind}
}

// Validate runs the project pass and returns a *ValidationError when it has errors.
// Warnings alone do not block an export.
func Validate(p soil.Project) ([]validate.Result, error) {
	ok, results := validate.ValidateProject(p)
	if !ok {
		return results, &ValidationError{Results: results}
	}
	return results, nil
}

// Project writes the complete project document to w. Nothing is written when
// validation reports errors.
func (e *Exporter) Project(w io.Writer, p soil.Project, opts Options) error {
	results, err := Validate(p)
	if err != nil {
		e.log.Warn("export refused", "project", p.Number, "summary", validate.Summary(results))
		return err
	}
	doc := BuildDocument(p, results)
	meta := e.metadata(TypeCompleteProject)
	meta.Compression = opts.Compress
	doc.ExportMetadata = &meta

	if opts.Compress {
		zw := gzip.NewWriter(w)
		if err := writeJSON(zw, doc); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("close gzip: %w", err)
		}
	} else if err := writeJSON(w, doc); err != nil {
		return err
	}
	e.log.Info("project exported", "project", p.Number, "strata", len(p.Strata), "compressed", opts.Compress)
	return nil
}

// Stratum writes one layer with its supporting data.
func (e *Exporter) Stratum(w io.Writer, p soil.Project, strataID string) error {
	for _, st := range p.Strata {
		if st.ID != strataID {
			continue
		}
		meta := e.metadata(TypeSingleLayer)
		meta.StrataID = strataID
		return writeJSON(w, LayerDocument{Stratum: st, ExportMetadata: meta})
	}
	return fmt.Errorf("%w: %s", ErrStratumNotFound, strataID)
}

// ParameterSet writes one design parameter across every layer that carries it.
func (e *Exporter) ParameterSet(w io.Writer, p soil.Project, parameter string) error {
	if len(p.Strata) == 0 {
		return fmt.Errorf("%w in project %s", ErrNoStrata, p.Number)
	}
	doc := BuildParameterSet(p, parameter)
	doc.ExportMetadata = e.metadata(TypeParameterSet)
	n := len(doc.Layers)
	doc.ExportMetadata.ParameterCount = &n
	return writeJSON(w, doc)
}

// ReadDocument decodes a project document, gzip-compressed or plain.
func ReadDocument(r io.Reader) (Document, error) {
	br, compressed, err := sniffGzip(r)
	if err != nil {
		return Document{}, err
	}
	src := br
	if compressed {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return Document{}, fmt.Errorf("open gzip: %w", err)
		}
		defer zr.Close()
		src = zr
	}
	var doc Document
	if err := json.NewDecoder(src).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func sniffGzip(r io.Reader) (io.Reader, bool, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	return br, len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b, nil
}
