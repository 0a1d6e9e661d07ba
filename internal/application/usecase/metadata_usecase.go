// internal/application/usecase/metadata_usecase.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var ErrMetadataUnreachable = errors.New("usecase: metadata not reachable")

// Attribute is one entry of the metadata "attributes" array.
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// MetadataDocument is the off-chain JSON referenced by the on-chain URI.
type MetadataDocument struct {
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Description  string         `json:"description"`
	Image        string         `json:"image"`
	ExternalURL  string         `json:"external_url"`
	Attributes   []Attribute    `json:"attributes"`
	Properties   map[string]any `json:"properties"`
	CustomFields map[string]any `json:"custom_fields"`
}

// Attribute returns the value of trait, or "" when absent.
func (d MetadataDocument) Attribute(trait string) string {
	for _, a := range d.Attributes {
		if a.TraitType == trait {
			return fmt.Sprint(a.Value)
		}
	}
	return ""
}

// Trait names compared against expected values.
const (
	TraitTransferable = "Transferable"
	TraitBurnable     = "Burnable"
	TraitNetwork      = "Network"
	TraitStandard     = "Standard"
)

// GovernanceTraits are listed (not validated) in the report.
var GovernanceTraits = []string{
	"Company/Project Name",
	"Verification Tier",
	"Issue Date",
	"Expiry Date",
	"Token Contract Address",
	"Treasury Wallet Address",
	"Liquidity Pool (LP) Wallet Address",
	"Company Website URL",
	"Social Media URLs",
	"Audit Report Hash",
	"Governance Framework Hash",
}

type URLCheck struct {
	Name   string
	URL    string
	Status int
	OK     bool
	Err    string
}

type Check struct {
	Name     string
	Expected string
	Actual   string
	OK       bool
}

type MetadataReport struct {
	URLs       []URLCheck
	Document   *MetadataDocument
	ParseErr   string
	Checks     []Check
	Governance []Check // Expected is empty; Actual is the listed value
	OK         bool
}

type MetadataCheckInput struct {
	MetadataURI      string
	ImageURL         string // optional; the document's own image is used when empty
	ExpectedNetwork  string
	ExpectedStandard string
}

// Publisher uploads a metadata document and returns its public URI.
type Publisher interface {
	Publish(ctx context.Context, name string, doc []byte) (string, error)
}

// MetadataUsecase checks and publishes the off-chain metadata document.
type MetadataUsecase struct {
	HTTP      *http.Client
	publisher Publisher // nil: publishing disabled
}

func NewMetadataUsecase(publisher Publisher) *MetadataUsecase {
	return &MetadataUsecase{
		HTTP:      &http.Client{Timeout: 15 * time.Second},
		publisher: publisher,
	}
}

// Check fetches the image and the metadata document and validates the document
// with presence checks and attribute comparisons only.
func (u *MetadataUsecase) Check(ctx context.Context, in MetadataCheckInput) (MetadataReport, error) {
	var rep MetadataReport
	uri := strings.TrimSpace(in.MetadataURI)
	if uri == "" {
		return rep, fmt.Errorf("%w: metadata URI is empty", ErrInvalidInput)
	}

	body, mc := u.fetch(ctx, "Metadata URL", uri)
	if mc.OK {
		var doc MetadataDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			rep.ParseErr = err.Error()
		} else {
			rep.Document = &doc
		}
	}

	imageURL := strings.TrimSpace(in.ImageURL)
	if imageURL == "" && rep.Document != nil {
		imageURL = strings.TrimSpace(rep.Document.Image)
	}
	if imageURL != "" {
		_, ic := u.fetch(ctx, "Image URL", imageURL)
		rep.URLs = append(rep.URLs, ic)
	}
	rep.URLs = append(rep.URLs, mc)

	if rep.Document != nil {
		rep.Checks = documentChecks(*rep.Document, in.ExpectedNetwork, in.ExpectedStandard)
		for _, trait := range GovernanceTraits {
			rep.Governance = append(rep.Governance, Check{Name: trait, Actual: rep.Document.Attribute(trait)})
		}
	}

	rep.OK = rep.Document != nil
	for _, c := range rep.URLs {
		rep.OK = rep.OK && c.OK
	}
	for _, c := range rep.Checks {
		rep.OK = rep.OK && c.OK
	}

	if !rep.OK {
		return rep, ErrMetadataUnreachable
	}
	return rep, nil
}

func documentChecks(d MetadataDocument, network, standard string) []Check {
	presence := func(name, v string) Check {
		return Check{Name: name, Actual: v, OK: strings.TrimSpace(v) != ""}
	}
	attr := func(trait, expected string) Check {
		actual := d.Attribute(trait)
		return Check{Name: trait, Expected: expected, Actual: actual, OK: actual == expected}
	}

	checks := []Check{
		presence("Name exists", d.Name),
		presence("Symbol exists", d.Symbol),
		presence("Image URL valid", d.Image),
		{Name: "Has attributes array", Actual: fmt.Sprintf("%d attributes", len(d.Attributes)), OK: d.Attributes != nil},
		attr(TraitBurnable, "Yes - By Authority Only"),
		attr(TraitTransferable, "No"),
	}
	if network != "" {
		checks = append(checks, attr(TraitNetwork, network))
	}
	if standard != "" {
		checks = append(checks, attr(TraitStandard, standard))
	}
	checks = append(checks, Check{Name: "Has properties", OK: d.Properties != nil})
	return checks
}

func (u *MetadataUsecase) fetch(ctx context.Context, name, url string) ([]byte, URLCheck) {
	c := URLCheck{Name: name, URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.Err = err.Error()
		return nil, c
	}
	resp, err := u.HTTP.Do(req)
	if err != nil {
		c.Err = err.Error()
		log.WithField("url", url).WithError(err).Warn("[metadata] fetch failed")
		return nil, c
	}
	defer resp.Body.Close()

	c.Status = resp.StatusCode
	c.OK = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !c.OK {
		c.Err = resp.Status
		return nil, c
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.OK = false
		c.Err = err.Error()
		return nil, c
	}
	return body, c
}

// Publish validates a local metadata document and uploads it.
func (u *MetadataUsecase) Publish(ctx context.Context, name string, doc []byte) (string, error) {
	if u.publisher == nil {
		return "", fmt.Errorf("%w: no publisher configured (publish.gcs_bucket or publish.arweave_base_url)", ErrInvalidInput)
	}
	var d MetadataDocument
	if err := json.Unmarshal(doc, &d); err != nil {
		return "", fmt.Errorf("%w: metadata is not valid JSON: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Symbol) == "" {
		return "", fmt.Errorf("%w: metadata needs name and symbol", ErrInvalidInput)
	}

	uri, err := u.publisher.Publish(ctx, path.Base(name), doc)
	if err != nil {
		return "", fmt.Errorf("publish metadata: %w", err)
	}
	log.WithField("uri", uri).Info("[metadata] published")
	return uri, nil
}
