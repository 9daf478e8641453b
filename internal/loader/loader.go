// Package loader turns startup sources into raw transaction records.
package loader

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

// ErrUnsupportedFormat is returned for source files that are neither XML nor JSON.
var ErrUnsupportedFormat = errors.New("unsupported source format")

// smsDocument accepts any root element name.
type smsDocument struct {
	XMLName xml.Name
	Records []smsElement `xml:"sms"`
}

type smsElement struct {
	Type      string `xml:"type,attr"`
	Amount    string `xml:"amount,attr"`
	Sender    string `xml:"sender,attr"`
	Receiver  string `xml:"receiver,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Body      string `xml:",chardata"`
}

// LoadFile reads path and parses it according to its extension.
func LoadFile(path string) ([]domain.RawRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(f)
	case ".json":
		return ParseJSON(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// ParseXML reads every <sms> child of the document root, in document order.
// Missing attributes default to empty strings and a zero amount.
func ParseXML(r io.Reader) ([]domain.RawRecord, error) {
	var doc smsDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(doc.Records))
	for i, el := range doc.Records {
		amount, err := parseAmount(el.Amount)
		if err != nil {
			return nil, fmt.Errorf("parse xml: sms #%d: %w", i+1, err)
		}
		records = append(records, domain.RawRecord{
			Type:      el.Type,
			Amount:    amount,
			Sender:    el.Sender,
			Receiver:  el.Receiver,
			Timestamp: el.Timestamp,
			Message:   strings.TrimSpace(el.Body),
		})
	}

	return records, nil
}

// ParseJSON reads a JSON array of records such as a jsonfile export.
// Any id in the input is discarded; the store assigns fresh ones. Keys
// outside the schema are kept in RawRecord.Extra.
func ParseJSON(r io.Reader) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if records == nil {
		records = []domain.RawRecord{}
	}
	return records, nil
}

func parseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
