package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"Strata/internal/export"
	"Strata/internal/logger"
	"Strata/internal/soil"
)

var ErrUnsupportedFormat = errors.New("unsupported import format")

// RowError explains why a sheet row was skipped. Row numbers are 1-based and
// count the header.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

type Result struct {
	Boreholes []soil.Borehole `json:"explorations"`
	Imported  int             `json:"imported"`
	Skipped   []RowError      `json:"skipped"`
}

// Store is what Save needs from the repository.
type Store interface {
	GetProject(ctx context.Context, id string) (soil.Project, error)
	SaveBorehole(ctx context.Context, projectID string, b *soil.Borehole) error
	SaveSample(ctx context.Context, boreholeID string, s *soil.Sample) error
}

// ReadFile picks the reader from the file extension.
func ReadFile(path string, opts CSVOptions) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	name := strings.ToLower(filepath.Base(path))
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return ReadWorkbook(f)
	case strings.HasSuffix(name, ".csv"):
		return ReadCSV(f, opts)
	case strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".json.gz"):
		return ReadDocument(f)
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
}

// Save stores imported samples under projectID. Boreholes already in the project
// keep their location; new ones are created from the imported row values.
func Save(ctx context.Context, store Store, projectID string, res Result) (int, error) {
	log := logger.ForComponent("importer")
	p, err := store.GetProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	existing := make(map[string]soil.Borehole, len(p.Boreholes))
	for _, b := range p.Boreholes {
		existing[b.BoreholeID] = b
	}

	saved := 0
	for _, b := range res.Boreholes {
		target, ok := existing[b.BoreholeID]
		if !ok {
			target = b
			target.Samples = nil
			if err := store.SaveBorehole(ctx, projectID, &target); err != nil {
				return saved, err
			}
			log.Info("borehole created by import", "project", projectID, "borehole", b.BoreholeID)
		}
		for i := range b.Samples {
			if err := store.SaveSample(ctx, target.ID, &b.Samples[i]); err != nil {
				return saved, err
			}
			saved++
		}
	}
	return saved, nil
}

// table turns header-keyed rows into boreholes. Unknown headers are ignored.
type table struct {
	index map[string]int
	res   Result
	holes map[string]*soil.Borehole
	order []string
}

func newTable(header []string) (*table, error) {
	t := &table{index: map[string]int{}, holes: map[string]*soil.Borehole{}}
	for i, h := range header {
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"borehole_id", "sample_id", "depth_top", "depth_bottom"} {
		if _, ok := t.index[required]; !ok {
			return nil, fmt.Errorf("missing %q column", required)
		}
	}
	return t, nil
}

func (t *table) cell(row []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) number(row []string, name string) (*float64, error) {
	s := t.cell(row, name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s: %q is not a number", name, s)
	}
	return &v, nil
}

func (t *table) add(line int, row []string) {
	if len(strings.Join(row, "")) == 0 {
		return
	}
	s, hole, err := t.parse(row)
	if err != nil {
		t.res.Skipped = append(t.res.Skipped, RowError{Row: line, Reason: err.Error()})
		return
	}
	b, ok := t.holes[hole.BoreholeID]
	if !ok {
		b = &hole
		t.holes[hole.BoreholeID] = b
		t.order = append(t.order, hole.BoreholeID)
	}
	b.Samples = append(b.Samples, s)
	t.res.Imported++
}

func (t *table) parse(row []string) (soil.Sample, soil.Borehole, error) {
	var (
		s    soil.Sample
		hole soil.Borehole
		errs []string
	)
	hole.BoreholeID = t.cell(row, "borehole_id")
	s.SampleID = t.cell(row, "sample_id")
	if hole.BoreholeID == "" || s.SampleID == "" {
		return s, hole, errors.New("borehole_id and sample_id are required")
	}
	if code := t.cell(row, "uscs_classification"); code != "" {
		c, err := soil.ParseClassification(code)
		if err != nil {
			return s, hole, err
		}
		s.Classification = c
	}
	s.Description = t.cell(row, "field_description")

	num := func(name string) *float64 {
		v, err := t.number(row, name)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return v
	}
	top, bottom := num("depth_top"), num("depth_bottom")
	if top == nil || bottom == nil {
		errs = append(errs, "depth_top and depth_bottom are required")
	} else {
		s.DepthTop, s.DepthBottom = *top, *bottom
	}
	if x, y, el := num("x"), num("y"), num("elevation"); x != nil && y != nil && el != nil {
		hole.X, hole.Y, hole.Elevation = *x, *y, *el
	}

	s.Tests = soil.TestData{
		FieldTests: soil.FieldTests{SPTN: num("spt_n_value")},
		MoistureDensity: soil.MoistureDensity{
			NaturalMoisture: num("natural_moisture"),
			DryDensity:      num("dry_density"),
			WetDensity:      num("wet_density"),
		},
		Gradation: soil.Gradation{
			GravelPercent: num("gravel_percent"),
			SandPercent:   num("sand_percent"),
			FinesPercent:  num("fines_percent"),
			D10:           num("d10"),
			D30:           num("d30"),
			D60:           num("d60"),
			Cu:            num("cu"),
			Cc:            num("cc"),
		},
		Atterberg: soil.Atterberg{
			LiquidLimit:     num("liquid_limit"),
			PlasticLimit:    num("plastic_limit"),
			PlasticityIndex: num("plasticity_index"),
		},
		StrengthTests: soil.StrengthTests{UnconfinedCompression: num("unconfined_compression")},
		Permeability: soil.PermeabilityTests{
			Horizontal: num("horizontal_permeability"),
			Vertical:   num("vertical_permeability"),
		},
		Consolidation: soil.ConsolidationTests{
			PreconsolidationPressure: num("preconsolidation_pressure"),
			CompressionIndex:         num("compression_index"),
			CoefficientConsolidation: num("coefficient_consolidation"),
		},
	}
	if len(errs) > 0 {
		return s, hole, errors.New(strings.Join(errs, "; "))
	}
	return s, hole, nil
}

func (t *table) result() Result {
	for _, id := range t.order {
		b := t.holes[id]
		sort.SliceStable(b.Samples, func(i, j int) bool { return b.Samples[i].DepthTop < b.Samples[j].DepthTop })
		t.res.Boreholes = append(t.res.Boreholes, *b)
	}
	return t.res
}

// ReadDocument imports the explorations of an exported project document.
func ReadDocument(r io.Reader) (Result, error) {
	doc, err := export.ReadDocument(r)
	if err != nil {
		return Result{}, err
	}
	p, err := doc.Project()
	if err != nil {
		return Result{}, err
	}
	res := Result{Boreholes: p.Boreholes}
	for _, b := range p.Boreholes {
		res.Imported += len(b.Samples)
	}
	return res, nil
}
