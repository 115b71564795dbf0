// Package knowledge holds the static reference data the assistant answers
// from. The base is loaded once at startup and never mutated afterwards, so
// concurrent readers need no synchronisation.
package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Document is one knowledge base entry: either a catalog product
// (Title/Description) or a financial report (Title label + Raw JSON payload).
type Document struct {
	Title       string
	Description string
	Raw         json.RawMessage
}

// Block renders the document as the textual block used in prompts.
func (d Document) Block() string {
	if len(d.Raw) > 0 {
		return fmt.Sprintf("Here is the %s data: %s.", d.Title, string(d.Raw))
	}
	return fmt.Sprintf("Product: %s\nDescription: %s", d.Title, d.Description)
}

// Base is the immutable in-memory knowledge base.
type Base struct {
	catalog []Document
	reports []Document
}

// NewBase builds a base from already-loaded documents.
func NewBase(catalog, reports []Document) *Base {
	return &Base{catalog: catalog, reports: reports}
}

// Catalog returns the product documents backing the public widget endpoint.
func (b *Base) Catalog() []Document {
	return b.catalog
}

// Reports returns the financial report documents backing the authenticated
// assistant.
func (b *Base) Reports() []Document {
	return b.reports
}

type product struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Report files and their prompt labels, in the order they appear in prompts.
var reportFiles = []struct {
	name  string
	label string
}{
	{"profit_loss_2024.json", "profit and loss"},
	{"balance_sheet_2024.json", "balance sheet"},
	{"executive_summary_2024.json", "executive summary"},
}

// Load reads the knowledge base from dir. Every expected file must be present
// and valid JSON; a broken knowledge base is a startup failure, not something
// to limp along without.
func Load(dir string) (*Base, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "products.json"))
	if err != nil {
		return nil, fmt.Errorf("knowledge: read products: %w", err)
	}

	var products []product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("knowledge: parse products: %w", err)
	}

	base := &Base{
		catalog: make([]Document, 0, len(products)),
		reports: make([]Document, 0, len(reportFiles)),
	}

	for _, p := range products {
		base.catalog = append(base.catalog, Document{Title: p.Title, Description: p.Description})
	}

	for _, rf := range reportFiles {
		payload, err := os.ReadFile(filepath.Join(dir, rf.name))
		if err != nil {
			return nil, fmt.Errorf("knowledge: read %s: %w", rf.name, err)
		}

		compacted, err := compactJSON(payload)
		if err != nil {
			return nil, fmt.Errorf("knowledge: parse %s: %w", rf.name, err)
		}

		base.reports = append(base.reports, Document{Title: rf.label, Raw: compacted})
	}

	return base, nil
}

func compactJSON(payload []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, payload); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
