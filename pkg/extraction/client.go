package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/config"
	"github.com/clinprot/regdocs/pkg/common/logger"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/clinprot/regdocs/pkg/gateway/httpclient"
)

// Client talks to the external NLP extraction and molecular modeling
// services. Both are opaque JSON-over-HTTP dependencies; this package
// never implements the analysis itself. With no base URL configured the
// client serves deterministic development fixtures.
type Client struct {
	extractionURL string
	insilicoURL   string
	httpClient    *http.Client
	retries       int
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		extractionURL: cfg.ExtractionBaseURL,
		insilicoURL:   cfg.InsilicoBaseURL,
		httpClient:    httpclient.New(cfg.UpstreamTimeout),
		retries:       cfg.UpstreamRetries,
	}
}

type FormsResult struct {
	Form1571 models.Form1571        `json:"fda_1571"`
	Form1572 models.Form1572        `json:"fda_1572"`
	Metadata map[string]interface{} `json:"extraction_metadata"`
}

// ExtractedCriterion is one eligibility criterion as returned by the
// NLP service, before it is persisted as a trial rule.
type ExtractedCriterion struct {
	Type           string                 `json:"criterion_type"`
	Category       string                 `json:"category"`
	Text           string                 `json:"text"`
	Operator       string                 `json:"operator,omitempty"`
	Value          string                 `json:"value,omitempty"`
	Unit           string                 `json:"unit,omitempty"`
	Negated        bool                   `json:"negated"`
	StructuredData map[string]interface{} `json:"structured_data,omitempty"`
}

type CriterionOutcome struct {
	Type          string `json:"type"`
	Met           bool   `json:"met"`
	Detail        string `json:"detail"`
	HardExclusion bool   `json:"hard_exclusion"`
}

// ScreenedPatient is the raw screening output for one patient; the
// screening package turns it into a scored result.
type ScreenedPatient struct {
	PatientID        string             `json:"patient_id"`
	Outcomes         []CriterionOutcome `json:"criteria_results"`
	DataCompleteness float64            `json:"data_completeness"`
	NLPConfidence    float64            `json:"nlp_confidence"`
}

// ExtractForms sends the uploaded protocol document to the NLP service
// and returns the structured 1571/1572 field bags.
func (c *Client) ExtractForms(ctx context.Context, filename string, content []byte) (FormsResult, error) {
	if c.extractionURL == "" {
		return mockForms(filename), nil
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return FormsResult{}, err
	}
	if _, err := part.Write(content); err != nil {
		return FormsResult{}, err
	}
	if err := writer.Close(); err != nil {
		return FormsResult{}, err
	}

	var result FormsResult
	err = c.do(ctx, http.MethodPost, c.extractionURL+"/api/v1/extract/forms", body.Bytes(), writer.FormDataContentType(), &result)
	if err != nil {
		return FormsResult{}, apperrors.Upstream("extraction", err)
	}
	return result, nil
}

func (c *Client) ExtractCriteria(ctx context.Context, protocolTitle, protocolText string) ([]ExtractedCriterion, error) {
	if c.extractionURL == "" {
		return mockCriteria(), nil
	}

	payload, _ := json.Marshal(map[string]string{
		"protocol_title": protocolTitle,
		"text":           protocolText,
	})
	var result struct {
		Criteria []ExtractedCriterion `json:"criteria"`
	}
	err := c.do(ctx, http.MethodPost, c.extractionURL+"/api/v1/extract/criteria", payload, "application/json", &result)
	if err != nil {
		return nil, apperrors.Upstream("extraction", err)
	}
	return result.Criteria, nil
}

func (c *Client) RunScreening(ctx context.Context, trialID string, criteria []ExtractedCriterion) ([]ScreenedPatient, error) {
	if c.extractionURL == "" {
		return mockScreening(), nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"trial_id": trialID,
		"criteria": criteria,
	})
	var result struct {
		Patients []ScreenedPatient `json:"patients"`
	}
	err := c.do(ctx, http.MethodPost, c.extractionURL+"/api/v1/screen", payload, "application/json", &result)
	if err != nil {
		return nil, apperrors.Upstream("screening", err)
	}
	return result.Patients, nil
}

func (c *Client) RunInsilico(ctx context.Context, trialID, drugName string) (map[string]interface{}, error) {
	if c.insilicoURL == "" {
		return mockInsilico(drugName), nil
	}

	payload, _ := json.Marshal(map[string]string{
		"trial_id":  trialID,
		"drug_name": drugName,
	})
	var result map[string]interface{}
	err := c.do(ctx, http.MethodPost, c.insilicoURL+"/api/v1/model", payload, "application/json", &result)
	if err != nil {
		return nil, apperrors.Upstream("insilico", err)
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, contentType string, dst interface{}) error {
	return httpclient.Retry(ctx, c.retries, 500*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 300 {
			logger.Log.WithFields(map[string]interface{}{
				"url":    url,
				"status": resp.StatusCode,
			}).Warn("upstream call failed")
			return fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		return json.Unmarshal(data, dst)
	})
}

func mockForms(filename string) FormsResult {
	return FormsResult{
		Form1571: models.Form1571{
			INDNumber:             "IND-000000",
			SubmissionType:        "Initial Investigational New Drug Application",
			DrugName:              "Compound-X",
			DosageForm:            "Tablet",
			RouteOfAdministration: "Oral",
			Indication:            "Type 2 Diabetes Mellitus",
			StudyPhase:            "Phase 2",
			ProtocolTitle:         "A Randomized Study of Compound-X",
			ProtocolNumber:        "CX-201",
			SponsorName:           "ClinProt Research Inc.",
			SponsorAddress:        "100 Research Way, Cambridge, MA",
			ContactPerson:         "Regulatory Affairs",
			FDAReviewDivision:     "Division of Diabetes, Lipid Disorders, and Obesity",
		},
		Form1572: models.Form1572{
			ProtocolTitle:    "A Randomized Study of Compound-X",
			ProtocolNumber:   "CX-201",
			InvestigatorName: "Principal Investigator",
			StudySites:       []string{"Site 001"},
			IRBName:          "Central IRB",
			AgreementSigned:  true,
		},
		Metadata: map[string]interface{}{
			"source_file": filename,
			"mock":        true,
		},
	}
}

func mockCriteria() []ExtractedCriterion {
	return []ExtractedCriterion{
		{Type: "inclusion", Category: "DEMOGRAPHIC", Text: "Age 18 to 75 years", Operator: "between", Value: "18-75", Unit: "years"},
		{Type: "inclusion", Category: "LAB_THRESHOLD", Text: "HbA1c between 7.0% and 10.5%", Operator: "between", Value: "7.0-10.5", Unit: "%"},
		{Type: "exclusion", Category: "CONDITION", Text: "History of severe hypoglycemia", Negated: false},
		{Type: "exclusion", Category: "LAB_THRESHOLD", Text: "eGFR below 45 mL/min/1.73m2", Operator: "lt", Value: "45", Unit: "mL/min/1.73m2"},
	}
}

func mockScreening() []ScreenedPatient {
	return []ScreenedPatient{
		{
			PatientID:        "PT-0001",
			DataCompleteness: 0.9,
			NLPConfidence:    0.8,
			Outcomes: []CriterionOutcome{
				{Type: "inclusion", Met: true, Detail: "age 54 within range"},
				{Type: "inclusion", Met: true, Detail: "HbA1c 8.2%"},
				{Type: "exclusion", Met: false, Detail: "no hypoglycemia history"},
				{Type: "exclusion", Met: false, Detail: "eGFR 78"},
			},
		},
		{
			PatientID:        "PT-0002",
			DataCompleteness: 0.6,
			NLPConfidence:    0.7,
			Outcomes: []CriterionOutcome{
				{Type: "inclusion", Met: true, Detail: "age 61 within range"},
				{Type: "inclusion", Met: false, Detail: "HbA1c 11.2% above range"},
				{Type: "exclusion", Met: true, Detail: "eGFR 40 below threshold", HardExclusion: true},
			},
		},
	}
}

func mockInsilico(drugName string) map[string]interface{} {
	return map[string]interface{}{
		"drug_name": drugName,
		"admet": map[string]interface{}{
			"absorption_score": 0.82,
			"toxicity_risk":    "low",
		},
		"binding_affinity": -8.4,
		"mock":             true,
	}
}
