package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ndt-connect/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV         = errors.New("CSV content is empty")
	ErrMissingColumns   = errors.New("missing required columns")
	ErrNoDataRows       = errors.New("CSV file contains no data rows")
	ErrInvalidRowData   = errors.New("invalid row data")
	ErrInvalidListValue = errors.New("invalid list entry")
)

// List separators inside a single CSV cell.
const (
	listSeparator   = ";"
	certFieldSep    = "|"
	serviceFieldSep = ":"
	certDateLayout  = "2006-01-02"
)

// RequiredColumns defines the columns that must be present in the CSV.
var RequiredColumns = []string{
	"user_id",
	"company_name",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// user_id aliases
	"userid":      "user_id",
	"user id":     "user_id",
	"provider_id": "user_id",
	"providerid":  "user_id",
	"id":          "user_id",

	// company_name aliases
	"company":      "company_name",
	"companyname":  "company_name",
	"company name": "company_name",
	"name":         "company_name",

	"usertype":  "user_type",
	"user type": "user_type",
	"type":      "user_type",

	"emailaddress":  "email",
	"email_address": "email",
	"mail":          "email",

	"stars": "rating",
	"score": "rating",

	"certs":          "certificates",
	"certifications": "certificates",

	"service":  "services",
	"offering": "services",

	"location":         "company_location",
	"companylocation":  "company_location",
	"company location": "company_location",
	"city":             "company_location",

	"specialization":         "company_specialization",
	"specializations":        "company_specialization",
	"companyspecialization":  "company_specialization",
	"company specialization": "company_specialization",
	"methods":                "company_specialization",

	"is_verified": "verified",
	"isverified":  "verified",
}

// CSVParser handles parsing of provider directory CSV files.
type CSVParser struct {
	columnMapping map[string]int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{columnMapping: make(map[string]int)}
}

// ParseProviders parses CSV content into provider upserts. Rows that fail to parse or
// validate are reported with their line number and skipped.
func (p *CSVParser) ParseProviders(content string, batchID string) ([]*models.ProviderCreate, []error) {
	if strings.TrimSpace(content) == "" {
		return nil, []error{ErrEmptyCSV}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	if err := p.buildColumnMapping(header); err != nil {
		return nil, []error{err}
	}

	var providers []*models.ProviderCreate
	var parseErrors []error
	lineNum := 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		provider, err := p.parseRow(record, batchID)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		if err := models.ValidateProviderCreate(provider); err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		providers = append(providers, provider)
	}

	if len(providers) == 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return providers, parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)

	for i, col := range header {
		normalized := normalizeColumn(col)
		if _, seen := p.columnMapping[normalized]; !seen {
			p.columnMapping[normalized] = i
		}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

func normalizeColumn(col string) string {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
	if alias, ok := ColumnAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// parseRow parses a single CSV row into a ProviderCreate.
func (p *CSVParser) parseRow(record []string, batchID string) (*models.ProviderCreate, error) {
	value := func(column string) string {
		idx, ok := p.columnMapping[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	provider := &models.ProviderCreate{
		UserID:          value("user_id"),
		UserType:        models.NormalizeUserType(value("user_type")),
		CompanyName:     value("company_name"),
		Email:           value("email"),
		CompanyLocation: value("company_location"),
		BatchID:         batchID,
	}

	if raw := value("rating"); raw != "" {
		rating, err := parseFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: rating %q", ErrInvalidRowData, raw)
		}
		provider.Rating = rating
	}

	if raw := value("verified"); raw != "" {
		verified, err := parseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: verified %q", ErrInvalidRowData, raw)
		}
		provider.Verified = verified
	}

	certificates, err := parseCertificates(value("certificates"))
	if err != nil {
		return nil, err
	}
	provider.Certificates = certificates

	services, err := parseServices(value("services"))
	if err != nil {
		return nil, err
	}
	provider.Services = services

	provider.CompanySpecialization = splitList(value("company_specialization"))

	return provider, nil
}

// parseCertificates reads "name|authority|YYYY-MM-DD" entries separated by ";".
// Authority and expiration date are optional.
func parseCertificates(raw string) ([]models.Certificate, error) {
	var certificates []models.Certificate
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, certFieldSep)
		cert := models.Certificate{Name: strings.TrimSpace(parts[0])}
		if len(parts) > 1 {
			cert.IssuingAuthority = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
			expires, err := time.Parse(certDateLayout, strings.TrimSpace(parts[2]))
			if err != nil {
				return nil, fmt.Errorf("%w: certificate %q has bad expiration date", ErrInvalidListValue, entry)
			}
			cert.ExpirationDate = &expires
		}
		if len(parts) > 3 {
			return nil, fmt.Errorf("%w: certificate %q has too many fields", ErrInvalidListValue, entry)
		}
		certificates = append(certificates, cert)
	}
	return certificates, nil
}

// parseServices reads "serviceId:charge:currency:unit" entries separated by ";".
// Currency and unit are optional.
func parseServices(raw string) ([]models.ServiceOffering, error) {
	var services []models.ServiceOffering
	for _, entry := range splitList(raw) {
		parts := strings.Split(entry, serviceFieldSep)
		if len(parts) < 2 || len(parts) > 4 {
			return nil, fmt.Errorf("%w: service %q must be id:charge[:currency[:unit]]", ErrInvalidListValue, entry)
		}

		charge, err := parseFloat(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: service %q has bad charge", ErrInvalidListValue, entry)
		}

		offering := models.ServiceOffering{
			ServiceID: strings.ToLower(strings.TrimSpace(parts[0])),
			Charge:    charge,
		}
		if len(parts) > 2 {
			offering.Currency = strings.ToUpper(strings.TrimSpace(parts[2]))
		}
		if len(parts) > 3 {
			offering.Unit = strings.TrimSpace(parts[3])
		}
		services = append(services, offering)
	}
	return services, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, listSeparator) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseFloat parses a string to float64, handling common formats.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)

	return strconv.ParseFloat(s, 64)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// ProviderColumns are the standard column names ParseProviders reads.
var ProviderColumns = []string{
	"user_id",
	"company_name",
	"user_type",
	"email",
	"rating",
	"certificates",
	"services",
	"company_location",
	"company_specialization",
	"verified",
}

// HeaderCheck describes how an import file's header maps onto provider fields.
type HeaderCheck struct {
	Columns  []string `json:"columns"`
	Ignored  []string `json:"ignored,omitempty"`
	DataRows int      `json:"data_rows"`
}

// CheckHeader rejects a file whose layout cannot be imported before any row is parsed.
// Row-level problems are left to ParseProviders, which reports them with line numbers.
func CheckHeader(content string) (*HeaderCheck, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyCSV
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	known := make(map[string]bool, len(ProviderColumns))
	for _, col := range ProviderColumns {
		known[col] = true
	}

	check := &HeaderCheck{}
	seen := make(map[string]bool)
	for _, col := range header {
		name := normalizeColumn(col)
		switch {
		case !known[name]:
			check.Ignored = append(check.Ignored, strings.TrimSpace(col))
		case !seen[name]:
			seen[name] = true
			check.Columns = append(check.Columns, name)
		}
	}

	var missing []string
	for _, required := range RequiredColumns {
		if !seen[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return check, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err == nil {
			check.DataRows++
		}
	}
	if check.DataRows == 0 {
		return check, ErrNoDataRows
	}

	return check, nil
}
