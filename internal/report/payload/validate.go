package payload

import (
	"encoding/json"
	"fmt"
	"time"

	"creditwatch/internal/report/models"
)

// Wire shapes for the raw document. Pointers distinguish "absent" from zero
// values so required-field checks report precisely.
type rawDocument struct {
	SubjectID     *string           `json:"subject_id"`
	Imports       []rawImport       `json:"imports"`
	Tradelines    []rawTradeline    `json:"tradelines"`
	Searches      []rawSearch       `json:"searches"`
	Scores        []rawScore        `json:"scores"`
	PublicRecords []rawPublicRecord `json:"public_records"`
	Addresses     []rawAddress      `json:"addresses"`
}

type rawImport struct {
	Ref          *string `json:"ref"`
	SourceSystem *string `json:"source_system"`
	ReportedAt   *string `json:"reported_at"`
}

type rawTradeline struct {
	ImportRef     *string  `json:"import_ref"`
	Lender        *string  `json:"lender"`
	AccountNumber *string  `json:"account_number"`
	AccountType   *string  `json:"account_type"`
	AccountStatus *string  `json:"account_status"`
	PaymentStatus *string  `json:"payment_status"`
	Balance       *int64   `json:"balance"`
	CreditLimit   *int64   `json:"credit_limit"`
	OpenedAt      *string  `json:"opened_at"`
}

type rawSearch struct {
	ImportRef    *string `json:"import_ref"`
	Type         *string `json:"type"`
	Organisation *string `json:"organisation"`
	SearchedAt   *string `json:"searched_at"`
}

type rawScore struct {
	ImportRef *string `json:"import_ref"`
	Provider  *string `json:"provider"`
	Value     *int    `json:"value"`
	ScoredAt  *string `json:"scored_at"`
}

type rawPublicRecord struct {
	ImportRef *string `json:"import_ref"`
	Kind      *string `json:"kind"`
	Amount    *int64  `json:"amount"`
	Status    *string `json:"status"`
	FiledAt   *string `json:"filed_at"`
}

type rawAddress struct {
	ImportRef *string `json:"import_ref"`
	Line1     *string `json:"line1"`
	Line2     *string `json:"line2"`
	City      *string `json:"city"`
	Postcode  *string `json:"postcode"`
	MovedIn   *string `json:"moved_in"`
}

// validator accumulates field errors so one pass reports every violation.
type validator struct {
	errs []FieldError
}

func (v *validator) addf(path, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) requireString(path string, s *string) (string, bool) {
	if s == nil || *s == "" {
		v.addf(path, "is required")
		return "", false
	}
	return *s, true
}

// timestamps accept full RFC 3339 or bare dates, since bureaus report both.
func (v *validator) requireTime(path string, s *string) (time.Time, bool) {
	raw, ok := v.requireString(path, s)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseTime(raw)
	if err != nil {
		v.addf(path, "invalid timestamp %q", raw)
		return time.Time{}, false
	}
	return t, true
}

func (v *validator) optionalTime(path string, s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := parseTime(*s)
	if err != nil {
		v.addf(path, "invalid timestamp %q", *s)
		return nil
	}
	return &t
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// Validate checks a raw document against the canonical schema and returns
// the typed payload, or the full list of violations. It has no side effects
// and never partially succeeds: any error means a nil payload.
func Validate(raw []byte) (*Payload, []FieldError) {
	var doc rawDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []FieldError{{Path: "$", Message: "invalid JSON: " + err.Error()}}
	}

	v := &validator{}
	p := &Payload{}

	p.SubjectID, _ = v.requireString("subject_id", doc.SubjectID)

	if len(doc.Imports) == 0 {
		v.addf("imports", "at least one import block is required")
	}
	refs := make(map[string]bool, len(doc.Imports))
	for i, imp := range doc.Imports {
		path := fmt.Sprintf("imports[%d]", i)
		ref, refOK := v.requireString(path+".ref", imp.Ref)
		if refOK {
			if refs[ref] {
				v.addf(path+".ref", "duplicate import ref %q", ref)
			}
			refs[ref] = true
		}
		source, _ := v.requireString(path+".source_system", imp.SourceSystem)
		reportedAt, _ := v.requireTime(path+".reported_at", imp.ReportedAt)
		p.Imports = append(p.Imports, Import{Ref: ref, SourceSystem: source, ReportedAt: reportedAt})
	}

	importRef := func(path string, ref *string) string {
		r, ok := v.requireString(path+".import_ref", ref)
		if ok && !refs[r] {
			v.addf(path+".import_ref", "references undeclared import %q", r)
		}
		return r
	}

	for i, t := range doc.Tradelines {
		path := fmt.Sprintf("tradelines[%d]", i)
		tl := Tradeline{ImportRef: importRef(path, t.ImportRef)}
		tl.Lender, _ = v.requireString(path+".lender", t.Lender)
		tl.AccountNumber, _ = v.requireString(path+".account_number", t.AccountNumber)
		if t.AccountType != nil {
			tl.AccountType = *t.AccountType
		}
		if status, ok := v.requireString(path+".account_status", t.AccountStatus); ok {
			tl.AccountStatus = models.AccountStatus(status)
			if !tl.AccountStatus.Known() {
				v.addf(path+".account_status", "unknown account status %q", status)
			}
		}
		if status, ok := v.requireString(path+".payment_status", t.PaymentStatus); ok {
			tl.PaymentStatus = models.PaymentStatus(status)
			if !tl.PaymentStatus.Known() {
				v.addf(path+".payment_status", "unknown payment status %q", status)
			}
		}
		if t.Balance == nil {
			v.addf(path+".balance", "is required")
		} else if *t.Balance < 0 {
			v.addf(path+".balance", "must not be negative")
		} else {
			tl.Balance = *t.Balance
		}
		if t.CreditLimit != nil {
			if *t.CreditLimit < 0 {
				v.addf(path+".credit_limit", "must not be negative")
			} else {
				tl.CreditLimit = *t.CreditLimit
			}
		}
		tl.OpenedAt = v.optionalTime(path+".opened_at", t.OpenedAt)
		p.Tradelines = append(p.Tradelines, tl)
	}

	for i, s := range doc.Searches {
		path := fmt.Sprintf("searches[%d]", i)
		sr := Search{ImportRef: importRef(path, s.ImportRef)}
		if kind, ok := v.requireString(path+".type", s.Type); ok {
			sr.Type = models.SearchType(kind)
			if !sr.Type.Known() {
				v.addf(path+".type", "unknown search type %q", kind)
			}
		}
		sr.Organisation, _ = v.requireString(path+".organisation", s.Organisation)
		sr.SearchedAt, _ = v.requireTime(path+".searched_at", s.SearchedAt)
		p.Searches = append(p.Searches, sr)
	}

	for i, s := range doc.Scores {
		path := fmt.Sprintf("scores[%d]", i)
		sc := Score{ImportRef: importRef(path, s.ImportRef)}
		sc.Provider, _ = v.requireString(path+".provider", s.Provider)
		if s.Value == nil {
			v.addf(path+".value", "is required")
		} else if *s.Value < 0 {
			v.addf(path+".value", "must not be negative")
		} else {
			sc.Value = *s.Value
		}
		sc.ScoredAt, _ = v.requireTime(path+".scored_at", s.ScoredAt)
		p.Scores = append(p.Scores, sc)
	}

	for i, r := range doc.PublicRecords {
		path := fmt.Sprintf("public_records[%d]", i)
		pr := PublicRecord{ImportRef: importRef(path, r.ImportRef)}
		pr.Kind, _ = v.requireString(path+".kind", r.Kind)
		if r.Amount != nil {
			if *r.Amount < 0 {
				v.addf(path+".amount", "must not be negative")
			} else {
				pr.Amount = *r.Amount
			}
		}
		if r.Status != nil {
			pr.Status = *r.Status
		}
		pr.FiledAt, _ = v.requireTime(path+".filed_at", r.FiledAt)
		p.PublicRecords = append(p.PublicRecords, pr)
	}

	for i, a := range doc.Addresses {
		path := fmt.Sprintf("addresses[%d]", i)
		ad := Address{ImportRef: importRef(path, a.ImportRef)}
		ad.Line1, _ = v.requireString(path+".line1", a.Line1)
		ad.Postcode, _ = v.requireString(path+".postcode", a.Postcode)
		if a.Line2 != nil {
			ad.Line2 = *a.Line2
		}
		if a.City != nil {
			ad.City = *a.City
		}
		ad.MovedIn = v.optionalTime(path+".moved_in", a.MovedIn)
		p.Addresses = append(p.Addresses, ad)
	}

	if len(v.errs) > 0 {
		return nil, v.errs
	}
	return p, nil
}
