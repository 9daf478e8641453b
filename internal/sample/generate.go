// Package sample generates synthetic mobile-money SMS records.
package sample

import (
	"encoding/xml"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/dvloznov/momo-tracker/internal/domain"
)

const sourceTimestampLayout = "2006-01-02T15:04:05"

var (
	transactionTypes = []string{"deposit", "withdrawal", "transfer", "payment"}

	senders = []string{
		"John Doe", "Jane Smith", "Alice Brown", "Bob Wilson",
		"Emma Davis", "Michael Johnson", "Sarah Williams", "David Miller",
		"Olivia Martinez", "James Anderson", "Sophia Taylor", "William Thomas",
		"Isabella Garcia", "Robert Moore", "Mia Jackson", "Charles White",
	}

	receiversByType = map[string][]string{
		"deposit":    {"MTN_MOMO", "AIRTEL_MONEY", "TIGO_CASH", "Mobile_Wallet"},
		"withdrawal": {"ATM_KIGALI", "ATM_REMERA", "ATM_NYARUTARAMA", "AGENT_001", "AGENT_002"},
		"transfer":   senders,
		"payment":    {"ShopRite", "Nakumatt", "Simba_Supermarket", "UTC_Mall", "Restaurant_Le_Must"},
	}

	baseDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Generate returns n random records. The same seed gives the same records.
func Generate(n int, seed int64) []domain.RawRecord {
	rng := rand.New(rand.NewSource(seed))

	records := make([]domain.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		typ := pick(rng, transactionTypes)
		sender := pick(rng, senders)
		receiver := pick(rng, receiversByType[typ])
		for typ == "transfer" && receiver == sender {
			receiver = pick(rng, receiversByType[typ])
		}

		amount := (rng.Intn(496) + 5) * 1000
		ts := baseDate.Add(
			time.Duration(rng.Intn(181))*24*time.Hour +
				time.Duration(rng.Intn(24))*time.Hour +
				time.Duration(rng.Intn(60))*time.Minute,
		)

		records = append(records, domain.RawRecord{
			Type:      typ,
			Amount:    float64(amount),
			Sender:    sender,
			Receiver:  receiver,
			Timestamp: ts.Format(sourceTimestampLayout),
			Message:   message(rng, typ, amount, receiver),
		})
	}

	return records
}

func message(rng *rand.Rand, typ string, amount int, receiver string) string {
	ref := rng.Intn(900000) + 100000
	switch typ {
	case "deposit":
		return fmt.Sprintf("You have deposited %s RWF to your mobile money account. New balance: %s RWF. Transaction ID: TXN%d",
			thousands(amount), thousands(amount+rng.Intn(90001)+10000), ref)
	case "withdrawal":
		return fmt.Sprintf("Withdrawal of %s RWF from %s successful. Remaining balance: %s RWF. Ref: WD%d",
			thousands(amount), receiver, thousands(rng.Intn(190001)+10000), ref)
	case "transfer":
		return fmt.Sprintf("Transfer of %s RWF to %s successful. Fee: %s RWF. Ref: TRF%d",
			thousands(amount), receiver, thousands(amount/100), ref)
	default:
		return fmt.Sprintf("Payment of %s RWF to %s successful. Thank you for your purchase. Ref: PAY%d",
			thousands(amount), receiver, ref)
	}
}

func pick(rng *rand.Rand, options []string) string {
	return options[rng.Intn(len(options))]
}

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := s[:head]
	for i := head; i < len(s); i += 3 {
		out += "," + s[i:i+3]
	}
	return out
}

type xmlRecords struct {
	XMLName xml.Name    `xml:"sms_records"`
	Records []xmlRecord `xml:"sms"`
}

type xmlRecord struct {
	Type      string `xml:"type,attr"`
	Amount    string `xml:"amount,attr"`
	Sender    string `xml:"sender,attr"`
	Receiver  string `xml:"receiver,attr"`
	Timestamp string `xml:"timestamp,attr"`
	Message   string `xml:",chardata"`
}

// WriteXML encodes records in the format the loader reads.
func WriteXML(w io.Writer, records []domain.RawRecord) error {
	doc := xmlRecords{Records: make([]xmlRecord, 0, len(records))}
	for _, r := range records {
		doc.Records = append(doc.Records, xmlRecord{
			Type:      r.Type,
			Amount:    strconv.FormatFloat(r.Amount, 'f', -1, 64),
			Sender:    r.Sender,
			Receiver:  r.Receiver,
			Timestamp: r.Timestamp,
			Message:   r.Message,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
