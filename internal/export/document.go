package export

import (
	"fmt"
	"sort"
	"time"

	"Strata/internal/interpret"
	"Strata/internal/soil"
	"Strata/internal/validate"
)

const Version = "1.0.0"

var supportedVersions = []string{"1.0.0"}

const (
	TypeCompleteProject = "complete_project"
	TypeSingleLayer     = "single_layer"
	TypeParameterSet    = "parameter_set"
)

type Metadata struct {
	ExportDate      time.Time `json:"export_date"`
	ExporterVersion string    `json:"exporter_version"`
	ExportType      string    `json:"export_type"`
	Compression     bool      `json:"compression,omitempty"`
	StrataID        string    `json:"strata_id,omitempty"`
	ParameterCount  *int      `json:"parameter_count,omitempty"`
}

type ProjectMetadata struct {
	Name             string    `json:"project_name"`
	Number           string    `json:"project_number"`
	DateCreated      time.Time `json:"date_created"`
	CreatedBy        string    `json:"created_by"`
	Version          string    `json:"version"`
	CoordinateSystem string    `json:"coordinate_system"`
	Client           string    `json:"client,omitempty"`
	Location         string    `json:"location,omitempty"`
	Description      string    `json:"description,omitempty"`
}

type Location struct {
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	Elevation        float64 `json:"elevation"`
	CoordinateSystem string  `json:"coordinate_system"`
}

type DrillingInfo struct {
	Method     string  `json:"method"`
	Date       *string `json:"date"`
	Contractor string  `json:"contractor"`
}

type Exploration struct {
	Location         Location      `json:"location"`
	DrillingInfo     DrillingInfo  `json:"drilling_info"`
	TotalDepth       *float64      `json:"total_depth,omitempty"`
	GroundwaterDepth *float64      `json:"groundwater_depth,omitempty"`
	Samples          []soil.Sample `json:"samples"`
}

type CalculationMethods struct {
	EquationsUsed     map[string][]string `json:"equations_used"`
	ValidationResults map[string]int      `json:"validation_results"`
	QualityMetrics    map[string]float64  `json:"quality_metrics"`
}

// Document is the exchange format for a complete project.
type Document struct {
	ProjectMetadata    ProjectMetadata        `json:"project_metadata"`
	Explorations       map[string]Exploration `json:"explorations"`
	InterpretedStrata  []soil.Stratum         `json:"interpreted_strata"`
	CalculationMethods CalculationMethods     `json:"calculation_methods"`
	ExportMetadata     *Metadata              `json:"export_metadata,omitempty"`
}

const dateLayout = "2006-01-02"

// BuildDocument assembles the export document for p. Strata are ordered from the
// top down and samples by depth.
func BuildDocument(p soil.Project, results []validate.Result) Document {
	doc := Document{
		ProjectMetadata: ProjectMetadata{
			Name:             p.Name,
			Number:           p.Number,
			DateCreated:      p.CreatedAt,
			CreatedBy:        p.CreatedBy,
			Version:          p.Version,
			CoordinateSystem: p.CoordinateSystem,
			Client:           p.Client,
			Location:         p.Location,
			Description:      p.Description,
		},
		Explorations: make(map[string]Exploration, len(p.Boreholes)),
	}
	samples := 0
	for _, b := range p.Boreholes {
		system := b.CoordinateSystem
		if system == "" {
			system = p.CoordinateSystem
		}
		var date *string
		if b.DrillingDate != nil {
			d := b.DrillingDate.Format(dateLayout)
			date = &d
		}
		ss := append([]soil.Sample(nil), b.Samples...)
		sort.SliceStable(ss, func(i, j int) bool { return ss[i].DepthTop < ss[j].DepthTop })
		samples += len(ss)
		doc.Explorations[b.BoreholeID] = Exploration{
			Location:         Location{X: b.X, Y: b.Y, Elevation: b.Elevation, CoordinateSystem: system},
			DrillingInfo:     DrillingInfo{Method: b.DrillingMethod, Date: date, Contractor: b.Contractor},
			TotalDepth:       b.TotalDepth,
			GroundwaterDepth: b.GroundwaterDepth,
			Samples:          ss,
		}
	}

	doc.InterpretedStrata = sortedStrata(p.Strata)

	methods := map[string][]string{}
	var confidence float64
	for _, st := range doc.InterpretedStrata {
		for name, param := range st.Parameters {
			if param.CalculationMethod != "" && !contains(methods[name], param.CalculationMethod) {
				methods[name] = append(methods[name], param.CalculationMethod)
			}
		}
		confidence += st.ConfidenceLevel
	}
	for name := range methods {
		sort.Strings(methods[name])
	}
	counts := map[string]int{}
	for _, r := range results {
		counts[string(r.Severity)]++
	}
	metrics := map[string]float64{
		"explorations": float64(len(p.Boreholes)),
		"samples":      float64(samples),
		"strata":       float64(len(p.Strata)),
	}
	if n := len(doc.InterpretedStrata); n > 0 {
		metrics["mean_confidence"] = confidence / float64(n)
	}
	doc.CalculationMethods = CalculationMethods{EquationsUsed: methods, ValidationResults: counts, QualityMetrics: metrics}
	return doc
}

// Project turns a document back into a project. Borehole order follows the
// borehole ids.
func (d Document) Project() (soil.Project, error) {
	if d.ExportMetadata != nil && !contains(supportedVersions, d.ExportMetadata.ExporterVersion) {
		return soil.Project{}, fmt.Errorf("%w: %q", ErrUnsupportedVersion, d.ExportMetadata.ExporterVersion)
	}
	m := d.ProjectMetadata
	p := soil.Project{
		Name:             m.Name,
		Number:           m.Number,
		Client:           m.Client,
		Location:         m.Location,
		Description:      m.Description,
		CoordinateSystem: m.CoordinateSystem,
		CreatedAt:        m.DateCreated,
		CreatedBy:        m.CreatedBy,
		Version:          m.Version,
		Strata:           d.InterpretedStrata,
	}
	ids := make([]string, 0, len(d.Explorations))
	for id := range d.Explorations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := d.Explorations[id]
		b := soil.Borehole{
			BoreholeID:       id,
			X:                e.Location.X,
			Y:                e.Location.Y,
			Elevation:        e.Location.Elevation,
			CoordinateSystem: e.Location.CoordinateSystem,
			DrillingMethod:   e.DrillingInfo.Method,
			Contractor:       e.DrillingInfo.Contractor,
			TotalDepth:       e.TotalDepth,
			GroundwaterDepth: e.GroundwaterDepth,
			Samples:          e.Samples,
		}
		if e.DrillingInfo.Date != nil && *e.DrillingInfo.Date != "" {
			t, err := time.Parse(dateLayout, *e.DrillingInfo.Date)
			if err != nil {
				return soil.Project{}, fmt.Errorf("borehole %s drilling date: %w", id, err)
			}
			b.DrillingDate = &t
		}
		p.Boreholes = append(p.Boreholes, b)
	}
	return p, nil
}

// LayerDocument is a single stratum export.
type LayerDocument struct {
	soil.Stratum
	ExportMetadata Metadata `json:"export_metadata"`
}

type ParameterLayer struct {
	StrataID        string               `json:"strata_id"`
	TopElevation    float64              `json:"top_elevation"`
	BottomElevation float64              `json:"bottom_elevation"`
	SoilType        string               `json:"soil_type"`
	Classification  soil.Classification  `json:"uscs_classification"`
	Parameter       soil.DesignParameter `json:"parameter_data"`
}

// ParameterSetDocument carries one design parameter across every layer that has it.
type ParameterSetDocument struct {
	ProjectNumber  string           `json:"project_number"`
	ParameterType  string           `json:"parameter_type"`
	Layers         []ParameterLayer `json:"layers"`
	MeanConfidence float64          `json:"mean_confidence"`
	ExportMetadata Metadata         `json:"export_metadata"`
}

func BuildParameterSet(p soil.Project, parameter string) ParameterSetDocument {
	doc := ParameterSetDocument{ProjectNumber: p.Number, ParameterType: parameter, Layers: []ParameterLayer{}}
	used := soil.DesignParameters{}
	for _, st := range sortedStrata(p.Strata) {
		param, ok := st.Parameters[parameter]
		if !ok {
			continue
		}
		used[st.ID] = param
		doc.Layers = append(doc.Layers, ParameterLayer{
			StrataID:        st.ID,
			TopElevation:    st.TopElevation,
			BottomElevation: st.BottomElevation,
			SoilType:        st.SoilType,
			Classification:  st.Classification,
			Parameter:       param,
		})
	}
	doc.MeanConfidence = interpret.MeanConfidence(used)
	return doc
}

func sortedStrata(in []soil.Stratum) []soil.Stratum {
	out := append([]soil.Stratum(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TopElevation > out[j].TopElevation })
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
