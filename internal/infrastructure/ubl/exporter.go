// Package ubl exporta un DocumentSnapshot a XML UBL 2.1 (Invoice, CreditNote o Quotation).
//
// El primer hijo de la raíz es ext:UBLExtensions con la huella SHA-256 del documento
// canonicalizado (C14N inclusivo) sin ese bloque; Verify la recalcula.
package ubl

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/Facturacion-api/internal/application/billing"
	"github.com/jhoicas/Facturacion-api/internal/application/dto"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// Namespaces UBL 2.1.
const (
	NsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsQuotation  = "urn:oasis:names:specification:ubl:schema:xsd:Quotation-2"
	NsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt        = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs         = "http://www.w3.org/2000/09/xmldsig#"

	customizationID = "urn:cen.eu:en16931:2017"
	dateLayout      = "2006-01-02"
	unitCode        = "C62" // unidad genérica
)

var _ appbilling.SnapshotRenderer = (*Exporter)(nil)

// Exporter implementa billing.SnapshotRenderer generando XML UBL.
type Exporter struct{}

// NewExporter crea el exportador.
func NewExporter() *Exporter { return &Exporter{} }

// ContentType implementa SnapshotRenderer.
func (e *Exporter) ContentType() string { return "application/xml" }

// kind agrupa los nombres de elementos que cambian por tipo de documento.
type kind struct {
	root, ns, typeCode, typeCodeValue, line, quantity, total string
}

func kindFor(docType string) (kind, error) {
	switch entity.DocumentType(docType) {
	case entity.DocumentTypeInvoice:
		return kind{"Invoice", NsInvoice, "InvoiceTypeCode", "380", "InvoiceLine", "InvoicedQuantity", "LegalMonetaryTotal"}, nil
	case entity.DocumentTypeCreditNote:
		return kind{"CreditNote", NsCreditNote, "CreditNoteTypeCode", "381", "CreditNoteLine", "CreditedQuantity", "LegalMonetaryTotal"}, nil
	case entity.DocumentTypeQuote:
		return kind{"Quotation", NsQuotation, "", "", "QuotationLine", "Quantity", "QuotedMonetaryTotal"}, nil
	}
	return kind{}, fmt.Errorf("ubl: tipo de documento no exportable: %q", docType)
}

// Render construye el XML y le incrusta la huella.
func (e *Exporter) Render(snap *dto.DocumentSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("ubl: snapshot nulo")
	}
	k, err := kindFor(snap.DocumentType)
	if err != nil {
		return nil, err
	}

	root := buildRoot(snap, k)
	digest, err := digestOf(root)
	if err != nil {
		return nil, err
	}
	root.InsertChildAt(0, extensionsElement(digest))

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(root)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("ubl: serializar: %w", err)
	}
	return out, nil
}

func buildRoot(snap *dto.DocumentSnapshot, k kind) *etree.Element {
	root := etree.NewElement(k.root)
	root.CreateAttr("xmlns", k.ns)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)
	root.CreateAttr("xmlns:ext", NsExt)
	root.CreateAttr("xmlns:ds", NsDs)

	cbc(root, "UBLVersionID", "2.1")
	cbc(root, "CustomizationID", customizationID)
	cbc(root, "ID", snap.Number)
	cbc(root, "IssueDate", snap.IssueDate.Format(dateLayout))
	if snap.DueDate != nil {
		cbc(root, "DueDate", snap.DueDate.Format(dateLayout))
	}
	if snap.ValidUntil != nil {
		vp := root.CreateElement("cac:ValidityPeriod")
		cbc(vp, "EndDate", snap.ValidUntil.Format(dateLayout))
	}
	if k.typeCode != "" {
		cbc(root, k.typeCode, k.typeCodeValue)
	}
	if snap.Notes != "" {
		cbc(root, "Note", snap.Notes)
	}
	cbc(root, "DocumentCurrencyCode", snap.Currency)
	if snap.BaseCurrency != "" && snap.BaseCurrency != snap.Currency {
		cbc(root, "TaxCurrencyCode", snap.BaseCurrency)
	}
	cbc(root, "LineCountNumeric", strconv.Itoa(len(snap.Lines)))

	if snap.InvoiceID != "" {
		ref := root.CreateElement("cac:BillingReference").CreateElement("cac:InvoiceDocumentReference")
		cbc(ref, "ID", snap.InvoiceID)
	}

	party := root.CreateElement("cac:AccountingCustomerParty").CreateElement("cac:Party")
	cbc(party.CreateElement("cac:PartyIdentification"), "ID", snap.ClientID)

	if snap.BaseCurrency != "" && snap.BaseCurrency != snap.Currency {
		rate := root.CreateElement("cac:TaxExchangeRate")
		cbc(rate, "SourceCurrencyCode", snap.Currency)
		cbc(rate, "TargetCurrencyCode", snap.BaseCurrency)
		cbc(rate, "CalculationRate", snap.ExchangeRate.String())
	}

	writeTaxTotal(root, snap)
	writeMonetaryTotal(root, snap, k)
	for i, l := range snap.Lines {
		writeLine(root, snap.Currency, k, i+1, l)
	}
	return root
}

func cbc(parent *etree.Element, local, value string) *etree.Element {
	el := parent.CreateElement("cbc:" + local)
	el.SetText(value)
	return el
}

func amount(parent *etree.Element, local string, v decimal.Decimal, currency string) {
	cbc(parent, local, v.StringFixed(2)).CreateAttr("currencyID", currency)
}

func taxCategory(parent *etree.Element, tag string, rate decimal.Decimal) {
	cat := parent.CreateElement(tag)
	id := "S"
	if rate.IsZero() {
		id = "Z"
	}
	cbc(cat, "ID", id)
	cbc(cat, "Percent", rate.String())
	cbc(cat.CreateElement("cac:TaxScheme"), "ID", "VAT")
}

// writeTaxTotal un TaxSubtotal por tasa, en el orden del desglose del snapshot.
func writeTaxTotal(root *etree.Element, snap *dto.DocumentSnapshot) {
	taxable := map[string]decimal.Decimal{}
	for _, l := range snap.Lines {
		key := l.VATRate.String()
		taxable[key] = taxable[key].Add(l.TaxableAmount)
	}

	tt := root.CreateElement("cac:TaxTotal")
	amount(tt, "TaxAmount", snap.TaxAmount, snap.Currency)
	for _, v := range snap.VATBreakdown {
		rate, err := decimal.NewFromString(v.Rate)
		if err != nil {
			continue
		}
		sub := tt.CreateElement("cac:TaxSubtotal")
		amount(sub, "TaxableAmount", taxable[v.Rate], snap.Currency)
		amount(sub, "TaxAmount", v.Amount, snap.Currency)
		taxCategory(sub, "cac:TaxCategory", rate)
	}
}

// writeMonetaryTotal: el descuento ya está repartido por línea, así que LineExtensionAmount
// es la base imponible.
func writeMonetaryTotal(root *etree.Element, snap *dto.DocumentSnapshot, k kind) {
	mt := root.CreateElement("cac:" + k.total)
	amount(mt, "LineExtensionAmount", snap.TaxableSubtotal, snap.Currency)
	amount(mt, "TaxExclusiveAmount", snap.TaxableSubtotal, snap.Currency)
	amount(mt, "TaxInclusiveAmount", snap.Total, snap.Currency)
	payable := snap.Total
	if snap.AmountPaid != nil && snap.AmountPaid.IsPositive() {
		amount(mt, "PrepaidAmount", *snap.AmountPaid, snap.Currency)
	}
	if snap.BalanceDue != nil {
		payable = *snap.BalanceDue
	}
	amount(mt, "PayableAmount", payable, snap.Currency)
}

func writeLine(root *etree.Element, currency string, k kind, n int, l dto.SnapshotLine) {
	line := root.CreateElement("cac:" + k.line)
	if k.root == "Quotation" {
		line = line.CreateElement("cac:LineItem")
	}
	cbc(line, "ID", strconv.Itoa(n))
	cbc(line, k.quantity, l.Quantity.String()).CreateAttr("unitCode", unitCode)
	amount(line, "LineExtensionAmount", l.TaxableAmount, currency)
	if l.DiscountAmount.IsPositive() {
		ac := line.CreateElement("cac:AllowanceCharge")
		cbc(ac, "ChargeIndicator", "false")
		amount(ac, "Amount", l.DiscountAmount, currency)
		amount(ac, "BaseAmount", l.LineTotal, currency)
	}
	item := line.CreateElement("cac:Item")
	cbc(item, "Name", l.Description)
	taxCategory(item, "cac:ClassifiedTaxCategory", l.VATRate)
	amount(line.CreateElement("cac:Price"), "PriceAmount", l.UnitPrice, currency)
}
