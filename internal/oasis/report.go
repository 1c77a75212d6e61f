package oasis

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrorReportParser extracts the human-readable error description from a
// provider error document.
type ErrorReportParser interface {
	ErrorDescription(doc []byte) (string, error)
}

// OASISReportParser reads OASISReport/MessagePayload/RTO/ERROR/ERR_DESC.
type OASISReportParser struct{}

type oasisReport struct {
	XMLName xml.Name `xml:"OASISReport"`
	Errors  []struct {
		Code string `xml:"ERR_CODE"`
		Desc string `xml:"ERR_DESC"`
	} `xml:"MessagePayload>RTO>ERROR"`
}

func (OASISReportParser) ErrorDescription(doc []byte) (string, error) {
	var report oasisReport
	if err := xml.NewDecoder(bytes.NewReader(doc)).Decode(&report); err != nil {
		return "", fmt.Errorf("decode error report: %w", err)
	}
	for _, e := range report.Errors {
		if desc := strings.TrimSpace(e.Desc); desc != "" {
			return desc, nil
		}
	}
	return "", errors.New("decode error report: no ERR_DESC element")
}
