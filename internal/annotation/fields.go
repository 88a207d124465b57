package annotation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
	"complexome/pkg/contracts/domain"
)

// ErrUnexpectedShape is returned when an entry lacks the expected structure
var ErrUnexpectedShape = errors.New("unexpected entry structure")

// FieldExtractor reads one annotation field from a remote entry
type FieldExtractor interface {
	Extract(entry gjson.Result) (null.String, error)
}

// ExtractorFunc adapts a function to FieldExtractor
type ExtractorFunc func(entry gjson.Result) (null.String, error)

// Extract calls f(entry)
func (f ExtractorFunc) Extract(entry gjson.Result) (null.String, error) {
	return f(entry)
}

// NewExtractors builds the extractors for the enabled entry fields.
// Hyperlink and linkout fields are derived elsewhere and have no extractor.
func NewExtractors(step config.UniprotStep, logger *slog.Logger) map[domain.AnnotationField]FieldExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	extractors := make(map[domain.AnnotationField]FieldExtractor)
	if step.Options.GeneName {
		extractors[domain.FieldGeneName] = &geneNameExtractor{known: toSet(step.KnownGeneNames), logger: logger}
	}
	if step.Options.ProteinName {
		extractors[domain.FieldProteinName] = &proteinNameExtractor{known: toSet(step.KnownProteinNames), logger: logger}
	}
	if step.Options.OrganismName {
		extractors[domain.FieldOrganismName] = ExtractorFunc(extractOrganismName)
	}
	if step.Options.CellCompartment {
		extractors[domain.FieldCellCompartment] = ExtractorFunc(extractCellCompartment)
	}
	return extractors
}

// geneNameExtractor takes the first name of the first gene. The name object
// is either {"value": ...} or a list of such objects.
type geneNameExtractor struct {
	known  map[string]struct{}
	logger *slog.Logger
}

func (g *geneNameExtractor) Extract(entry gjson.Result) (null.String, error) {
	genes := entry.Get("gene")
	if !genes.Exists() {
		return null.String{}, nil
	}
	if !genes.IsArray() {
		return null.String{}, fmt.Errorf("gene: %w", ErrUnexpectedShape)
	}
	first := genes.Get("0")
	if !first.Exists() {
		return null.String{}, nil
	}

	key, value, ok := firstMember(first)
	if !ok {
		return null.String{}, fmt.Errorf("gene has no name: %w", ErrUnexpectedShape)
	}
	if _, known := g.known[key]; !known {
		g.logger.Debug("unknown_gene_name_key",
			slog.String("key", key),
			slog.String("accession", entry.Get("accession").String()))
	}

	return valueOf(value, "gene."+key)
}

// proteinNameExtractor takes the full name under the first known protein
// name key, falling back to the first key present
type proteinNameExtractor struct {
	known  map[string]struct{}
	logger *slog.Logger
}

func (p *proteinNameExtractor) Extract(entry gjson.Result) (null.String, error) {
	protein := entry.Get("protein")
	if !protein.Exists() {
		return null.String{}, nil
	}
	if !protein.IsObject() {
		return null.String{}, fmt.Errorf("protein: %w", ErrUnexpectedShape)
	}

	var (
		chosen     gjson.Result
		chosenKey  string
		firstKey   string
		firstValue gjson.Result
		haveFirst  bool
		haveChosen bool
	)
	protein.ForEach(func(k, v gjson.Result) bool {
		if !haveFirst {
			firstKey, firstValue, haveFirst = k.String(), v, true
		}
		if _, ok := p.known[k.String()]; ok {
			chosenKey, chosen, haveChosen = k.String(), v, true
			return false
		}
		return true
	})

	if !haveChosen {
		if !haveFirst {
			return null.String{}, nil
		}
		p.logger.Debug("unknown_protein_name_key",
			slog.String("key", firstKey),
			slog.String("accession", entry.Get("accession").String()))
		chosenKey, chosen = firstKey, firstValue
	}

	if chosen.IsArray() {
		chosen = chosen.Get("0")
	}
	full := chosen.Get("fullName.value")
	if !full.Exists() {
		return null.String{}, fmt.Errorf("protein.%s.fullName: %w", chosenKey, ErrUnexpectedShape)
	}
	return null.StringFrom(full.String()), nil
}

// extractOrganismName reads the first organism name
func extractOrganismName(entry gjson.Result) (null.String, error) {
	organism := entry.Get("organism")
	if !organism.Exists() {
		return null.String{}, nil
	}
	name := organism.Get("names.0.value")
	if !name.Exists() {
		return null.String{}, fmt.Errorf("organism.names: %w", ErrUnexpectedShape)
	}
	return null.StringFrom(name.String()), nil
}

// extractCellCompartment lists the subcellular locations, each followed by
// a semicolon. Entries without such a comment have no compartment.
func extractCellCompartment(entry gjson.Result) (null.String, error) {
	comments := entry.Get("comments")
	if !comments.Exists() {
		return null.String{}, nil
	}

	var (
		b     strings.Builder
		found bool
		err   error
	)
	comments.ForEach(func(_, comment gjson.Result) bool {
		if comment.Get("type").String() != "SUBCELLULAR_LOCATION" {
			return true
		}
		found = true
		b.Reset()
		comment.Get("locations").ForEach(func(_, loc gjson.Result) bool {
			value := loc.Get("location.value")
			if !value.Exists() {
				err = fmt.Errorf("comments.locations: %w", ErrUnexpectedShape)
				return false
			}
			b.WriteString(value.String())
			b.WriteByte(';')
			return true
		})
		return err == nil
	})

	if err != nil {
		return null.String{}, err
	}
	if !found {
		return null.String{}, nil
	}
	return null.StringFrom(b.String()), nil
}

// firstMember returns the first key and value of a JSON object
func firstMember(obj gjson.Result) (string, gjson.Result, bool) {
	var (
		key   string
		value gjson.Result
		ok    bool
	)
	obj.ForEach(func(k, v gjson.Result) bool {
		key, value, ok = k.String(), v, true
		return false
	})
	return key, value, ok
}

// valueOf reads "value" from an object or from the first object of a list
func valueOf(r gjson.Result, path string) (null.String, error) {
	switch {
	case r.IsObject():
		if v := r.Get("value"); v.Exists() {
			return null.StringFrom(v.String()), nil
		}
	case r.IsArray():
		if v := r.Get("0.value"); v.Exists() {
			return null.StringFrom(v.String()), nil
		}
	}
	return null.String{}, fmt.Errorf("%s: %w", path, ErrUnexpectedShape)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
