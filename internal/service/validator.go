package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/usecase"
)

const svrlNamespace = "http://purl.oclc.org/dsdl/svrl"

type schemaDirs interface {
	Dir(id string) string
}

type reportStore interface {
	SaveValidations(ctx context.Context, id int64, reports []domain.ValidationReport) error
}

// SchematronValidator runs the compiled schematron rule sets of a schema over
// a record and stores one report per rule set.
type SchematronValidator struct {
	reader  usecase.RecordReader
	schemas schemaDirs
	engine  usecase.TransformEngine
	reports reportStore
}

func NewSchematronValidator(
	reader usecase.RecordReader,
	schemas schemaDirs,
	engine usecase.TransformEngine,
	reports reportStore,
) *SchematronValidator {
	return &SchematronValidator{
		reader:  reader,
		schemas: schemas,
		engine:  engine,
		reports: reports,
	}
}

// SchematronValidatorFactory binds the validator to the manager once it exists.
func SchematronValidatorFactory(schemas schemaDirs, engine usecase.TransformEngine, reports reportStore) usecase.ValidatorFactory {
	return func(reader usecase.RecordReader) usecase.Validator {
		return NewSchematronValidator(reader, schemas, engine, reports)
	}
}

// Validate checks body, or the stored record when body is empty.
func (v *SchematronValidator) Validate(ctx context.Context, schemaID string, id int64, body string, lang string) ([]domain.ValidationReport, error) {
	ctx, span := tracer.Start(ctx, "Validator.Service.Validate")
	defer span.End()

	if body == "" {
		view, err := v.reader.Get(ctx, id, usecase.GetOptions{ForEditing: true})
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to read record")
		}
		body = view.Body
		schemaID = view.Record.SchemaID
	}

	rules, err := filepath.Glob(filepath.Join(v.schemas.Dir(schemaID), "schematron", "schematron-rules-*.xsl"))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	sort.Strings(rules)

	reports := make([]domain.ValidationReport, 0, len(rules))
	for _, rule := range rules {
		svrl, err := v.engine.Apply(ctx, rule, body, map[string]string{"lang": lang})
		if err != nil {
			span.RecordError(err)
			return nil, domain.TransformFailureError{Stylesheet: filepath.Base(rule), Err: err}
		}

		report, err := summarizeSVRL(svrl)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "unreadable schematron report")
		}
		report.MetadataID = id
		report.ValidationType = strings.TrimSuffix(filepath.Base(rule), ".xsl")
		reports = append(reports, report)
	}

	if err := v.reports.SaveValidations(ctx, id, reports); err != nil {
		slog.WarnContext(
			ctx, "failed to save validation reports",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
			slog.String("module", "validator"),
		)
	}

	return reports, nil
}

// summarizeSVRL counts fired rules and failed assertions of an SVRL report.
func summarizeSVRL(svrl string) (domain.ValidationReport, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(svrl); err != nil {
		return domain.ValidationReport{}, err
	}
	if doc.Root() == nil {
		return domain.ValidationReport{}, errors.New("empty report")
	}

	var report domain.ValidationReport
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		if el.NamespaceURI() == svrlNamespace {
			switch el.Tag {
			case "fired-rule":
				report.NumTests++
			case "failed-assert":
				report.NumFailures++
			}
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(doc.Root())

	report.IsValid = report.NumFailures == 0
	return report, nil
}
