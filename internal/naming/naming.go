// Package naming generates, parses, and validates document filenames.
// All functions are pure; callers own filesystem concerns.
//
// Four shapes are recognised:
//
//	Standard:   {TYPE}_{slug}_{YYYY-MM-DD}_v{M.N}.{ext}
//	ADR:        ADR-{NNN}_{slug}_{YYYY-MM-DD}.{ext}
//	Postmortem: Postmortem_{YYYY-MM-DD}_{slug}.{ext}
//	Runbook:    Runbook_{slug}_{YYYY-MM-DD}_v{M.N}.{ext}
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gao-dev/doclife/internal/types"
)

// Shape identifies which filename convention a name follows.
type Shape string

// Filename shape constants
const (
	ShapeStandard   Shape = "standard"
	ShapeADR        Shape = "adr"
	ShapePostmortem Shape = "postmortem"
	ShapeRunbook    Shape = "runbook"
)

// Defaults applied by Generate when the caller omits a field.
const (
	DefaultVersion = "1.0"
	DefaultExt     = "md"
)

const dateLayout = "2006-01-02"

// typeTokens maps document types onto their uppercase filename tokens.
// ADR, postmortem, and runbook documents use their own shapes instead.
var typeTokens = map[types.DocType]string{
	types.TypePRD:          "PRD",
	types.TypeArchitecture: "ARCH",
	types.TypeEpic:         "EPIC",
	types.TypeStory:        "STORY",
	types.TypeQAReport:     "QA",
	types.TypeTestReport:   "TEST",
}

var tokenTypes = func() map[string]types.DocType {
	m := make(map[string]types.DocType, len(typeTokens))
	for t, token := range typeTokens {
		m[token] = t
	}
	return m
}()

var (
	slugPattern = `[a-z0-9]+(?:-[a-z0-9]+)*`
	datePattern = `\d{4}-\d{2}-\d{2}`
	verPattern  = `\d+\.\d+`
	extPattern  = `[A-Za-z0-9]+`

	adrRe        = regexp.MustCompile(`^ADR-(\d{3})_(` + slugPattern + `)_(` + datePattern + `)\.(` + extPattern + `)$`)
	postmortemRe = regexp.MustCompile(`^Postmortem_(` + datePattern + `)_(` + slugPattern + `)\.(` + extPattern + `)$`)
	runbookRe    = regexp.MustCompile(`^Runbook_(` + slugPattern + `)_(` + datePattern + `)_v(` + verPattern + `)\.(` + extPattern + `)$`)
	standardRe   = regexp.MustCompile(`^([A-Z][A-Z0-9]*)_(` + slugPattern + `)_(` + datePattern + `)_v(` + verPattern + `)\.(` + extPattern + `)$`)

	nonSlugRe     = regexp.MustCompile(`[^a-z0-9]+`)
	versionRe     = regexp.MustCompile(`^` + verPattern + `$`)
	multiHyphenRe = regexp.MustCompile(`-{2,}`)
)

// Name is the parsed form of a compliant filename.
type Name struct {
	Shape     Shape
	Type      types.DocType // zero when the standard TYPE token is unknown
	TypeToken string        // raw uppercase token for standard names
	Number    int           // ADR sequence number
	Slug      string
	Date      time.Time
	Version   string // empty for shapes without a version segment
	Ext       string
}

// String renders the canonical filename for the parsed fields.
func (n *Name) String() string {
	date := n.Date.Format(dateLayout)
	switch n.Shape {
	case ShapeADR:
		return fmt.Sprintf("ADR-%03d_%s_%s.%s", n.Number, n.Slug, date, n.Ext)
	case ShapePostmortem:
		return fmt.Sprintf("Postmortem_%s_%s.%s", date, n.Slug, n.Ext)
	case ShapeRunbook:
		return fmt.Sprintf("Runbook_%s_%s_v%s.%s", n.Slug, date, n.Version, n.Ext)
	default:
		return fmt.Sprintf("%s_%s_%s_v%s.%s", n.TypeToken, n.Slug, date, n.Version, n.Ext)
	}
}

// Slugify normalises a subject into the slug alphabet: lowercase, runs of
// anything outside [a-z0-9] become single hyphens, leading and trailing
// hyphens are stripped.
func Slugify(subject string) string {
	s := strings.ToLower(subject)
	s = nonSlugRe.ReplaceAllString(s, "-")
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// GenerateOptions override Generate's defaults. The zero value means
// today's date, version 1.0, extension "md".
type GenerateOptions struct {
	Date    time.Time
	Version string
	Number  int // ADR sequence number, required for ADR names
	Ext     string
}

// Generate returns the canonical filename for a document of the given
// type and subject.
func Generate(docType types.DocType, subject string, opts GenerateOptions) (string, error) {
	slug := Slugify(subject)
	if slug == "" {
		return "", fmt.Errorf("subject %q produces an empty slug", subject)
	}

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}
	version := opts.Version
	if version == "" {
		version = DefaultVersion
	}
	if !versionRe.MatchString(version) {
		return "", fmt.Errorf("version %q is not of the form M.N", version)
	}
	ext := opts.Ext
	if ext == "" {
		ext = DefaultExt
	}

	n := Name{Type: docType, Slug: slug, Date: date, Version: version, Ext: ext}
	switch docType {
	case types.TypeADR:
		if opts.Number <= 0 {
			return "", fmt.Errorf("ADR names require a positive sequence number")
		}
		if opts.Number > 999 {
			return "", fmt.Errorf("ADR sequence number %d exceeds 999", opts.Number)
		}
		n.Shape = ShapeADR
		n.Number = opts.Number
	case types.TypePostmortem:
		n.Shape = ShapePostmortem
	case types.TypeRunbook:
		n.Shape = ShapeRunbook
	default:
		token, ok := typeTokens[docType]
		if !ok {
			return "", fmt.Errorf("no filename convention for document type %q", docType)
		}
		n.Shape = ShapeStandard
		n.TypeToken = token
	}
	return n.String(), nil
}

// Parse decomposes a filename into its fields, or fails when the name
// matches no known shape. The specific shapes are tried before the
// standard one so "Runbook_..." never parses as a standard name with
// an unknown TYPE token.
func Parse(filename string) (*Name, error) {
	if m := adrRe.FindStringSubmatch(filename); m != nil {
		num, _ := strconv.Atoi(m[1])
		date, err := parseDate(m[3])
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", filename, err)
		}
		return &Name{Shape: ShapeADR, Type: types.TypeADR, Number: num,
			Slug: m[2], Date: date, Ext: m[4]}, nil
	}
	if m := postmortemRe.FindStringSubmatch(filename); m != nil {
		date, err := parseDate(m[1])
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", filename, err)
		}
		return &Name{Shape: ShapePostmortem, Type: types.TypePostmortem,
			Slug: m[2], Date: date, Ext: m[3]}, nil
	}
	if m := runbookRe.FindStringSubmatch(filename); m != nil {
		date, err := parseDate(m[2])
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", filename, err)
		}
		return &Name{Shape: ShapeRunbook, Type: types.TypeRunbook,
			Slug: m[1], Date: date, Version: m[3], Ext: m[4]}, nil
	}
	if m := standardRe.FindStringSubmatch(filename); m != nil {
		date, err := parseDate(m[3])
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", filename, err)
		}
		return &Name{Shape: ShapeStandard, Type: tokenTypes[m[1]], TypeToken: m[1],
			Slug: m[2], Date: date, Version: m[4], Ext: m[5]}, nil
	}
	return nil, fmt.Errorf("filename %q matches no known naming convention", filename)
}

func parseDate(s string) (time.Time, error) {
	date, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return date, nil
}

// Validate reports whether the filename follows one of the recognised
// shapes. The error names what is wrong with a non-compliant name.
func Validate(filename string) error {
	_, err := Parse(filename)
	return err
}

// Suggest repairs a non-compliant filename given the document's type and
// subject. A name that already parses is re-rendered canonically
// (normalising padding and slugs); otherwise a fresh name is generated
// with today's date and default version. When subject is empty the old
// name's stem is slugified and reused.
func Suggest(filename string, docType types.DocType, subject string) (string, error) {
	if n, err := Parse(filename); err == nil && (n.Type == docType || n.Type == "") {
		if n.Type == "" {
			// Valid shape, unknown TYPE token: rewrite with the right one.
			token, ok := typeTokens[docType]
			if !ok {
				return "", fmt.Errorf("no filename convention for document type %q", docType)
			}
			n.TypeToken = token
			n.Type = docType
		}
		return n.String(), nil
	}

	if subject == "" {
		stem := filename
		if i := strings.LastIndex(stem, "."); i > 0 {
			stem = stem[:i]
		}
		subject = stem
	}
	opts := GenerateOptions{}
	if docType == types.TypeADR {
		opts.Number = 1
	}
	return Generate(docType, subject, opts)
}
