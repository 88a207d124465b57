package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"gopkg.in/guregu/null.v3"

	"complexome/internal/config"
)

// mappingHeader is the first line of a tab-separated mapping response
const mappingHeader = "From\tTo\n"

// Mapper resolves accessions to STRING identifiers through the identifier
// mapping service
type Mapper struct {
	client  *Client
	params  config.StringLinkoutParameters
	isoform *regexp.Regexp
	logger  *slog.Logger
}

// NewMapper compiles the isoform pattern. An empty pattern strips nothing.
func NewMapper(client *Client, params config.StringLinkoutParameters, logger *slog.Logger) (*Mapper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapper{
		client: client,
		params: params,
		logger: logger.With(slog.String("component", "identifier_mapping")),
	}
	if params.RegexPattern != "" {
		re, err := regexp.Compile(params.RegexPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex_pattern %q: %w", params.RegexPattern, err)
		}
		m.isoform = re
	}
	return m, nil
}

// Linkouts maps every identifier to a STRING hyperlink. Identifiers the
// service does not know get a not-available value.
func (m *Mapper) Linkouts(ctx context.Context, identifiers []string) (map[string]null.String, error) {
	mapped, err := m.Map(ctx, identifiers)
	if err != nil {
		return nil, err
	}

	links := make(map[string]null.String, len(identifiers))
	for _, id := range identifiers {
		target, ok := mapped[id]
		if !ok {
			target, ok = mapped[m.stripIsoform(id)]
		}
		if !ok {
			links[id] = null.String{}
			continue
		}
		links[id] = MakeHyperlink(m.params.StringBaseURL + target)
	}

	m.logger.InfoContext(ctx, "identifiers_mapped",
		slog.Int("requested", len(identifiers)),
		slog.Int("mapped", len(mapped)))
	return links, nil
}

// Map posts the whole identifier set in one request and returns the
// accession to STRING identifier pairs
func (m *Mapper) Map(ctx context.Context, identifiers []string) (map[string]string, error) {
	form := url.Values{
		"from":   {"ACC+ID"},
		"to":     {"STRING_ID"},
		"format": {"tab"},
		"query":  {m.FormatQuery(identifiers)},
	}
	body, err := m.client.PostForm(ctx, m.params.UniprotMappingServiceURL, form)
	if err != nil {
		return nil, fmt.Errorf("identifier mapping failed: %w", err)
	}
	return ParseMappingResponse(string(body))
}

// FormatQuery joins identifiers with spaces after stripping isoform suffixes
func (m *Mapper) FormatQuery(identifiers []string) string {
	var b strings.Builder
	for _, id := range identifiers {
		b.WriteString(m.stripIsoform(id))
		b.WriteByte(' ')
	}
	return b.String()
}

// stripIsoform removes the two-character isoform suffix (e.g. "-2")
func (m *Mapper) stripIsoform(id string) string {
	if m.isoform != nil && m.isoform.MatchString(id) && len(id) >= 2 {
		return id[:len(id)-2]
	}
	return id
}

// ParseMappingResponse parses "From\tTo" lines into a map
func ParseMappingResponse(body string) (map[string]string, error) {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimPrefix(body, mappingHeader)

	mapped := make(map[string]string)
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		from, to, ok := strings.Cut(line, "\t")
		if !ok || strings.Contains(to, "\t") {
			return nil, fmt.Errorf("malformed mapping line %q", line)
		}
		mapped[from] = to
	}
	return mapped, nil
}

// MakeHyperlink renders a spreadsheet hyperlink formula labelled with the
// last path segment of the link
func MakeHyperlink(link string) null.String {
	if link == "" {
		return null.String{}
	}
	label := link[strings.LastIndex(link, "/")+1:]
	return null.StringFrom(fmt.Sprintf(`=HYPERLINK("%s", "%s")`, link, label))
}
