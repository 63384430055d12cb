package ubl

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"
)

// Algoritmos declarados junto a la huella.
const (
	AlgC14N   = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgSHA256 = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// ErrFingerprintMismatch la huella incrustada no corresponde al contenido.
var ErrFingerprintMismatch = errors.New("ubl: la huella no coincide con el documento")

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// digestOf SHA-256 en base64 de la forma canónica de root (sin declaración XML).
func digestOf(root *etree.Element) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(root.Copy())
	raw, err := doc.WriteToBytes()
	if err != nil {
		return "", fmt.Errorf("ubl: serializar para huella: %w", err)
	}
	canonical, err := canonicalize(raw)
	if err != nil {
		return "", fmt.Errorf("ubl: canonicalizar: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func extensionsElement(digest string) *etree.Element {
	exts := etree.NewElement("ext:UBLExtensions")
	content := exts.CreateElement("ext:UBLExtension").CreateElement("ext:ExtensionContent")
	ref := content.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")
	ref.CreateElement("ds:Transforms").CreateElement("ds:Transform").CreateAttr("Algorithm", AlgC14N)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	ref.CreateElement("ds:DigestValue").SetText(digest)
	return exts
}

// Fingerprint devuelve la huella incrustada en un XML exportado.
func Fingerprint(xmlBytes []byte) (string, error) {
	_, exts, err := parseExported(xmlBytes)
	if err != nil {
		return "", err
	}
	dv := exts.FindElement(".//ds:DigestValue")
	if dv == nil {
		return "", fmt.Errorf("ubl: falta ds:DigestValue")
	}
	return dv.Text(), nil
}

// Verify recalcula la huella sin el bloque de extensiones y la compara con la incrustada.
func Verify(xmlBytes []byte) error {
	root, exts, err := parseExported(xmlBytes)
	if err != nil {
		return err
	}
	dv := exts.FindElement(".//ds:DigestValue")
	if dv == nil {
		return fmt.Errorf("ubl: falta ds:DigestValue")
	}
	root.RemoveChild(exts)
	got, err := digestOf(root)
	if err != nil {
		return err
	}
	if got != dv.Text() {
		return ErrFingerprintMismatch
	}
	return nil
}

func parseExported(xmlBytes []byte) (*etree.Element, *etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, nil, fmt.Errorf("ubl: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, fmt.Errorf("ubl: documento sin raíz")
	}
	exts := root.SelectElement("ext:UBLExtensions")
	if exts == nil {
		return nil, nil, fmt.Errorf("ubl: no se encontró ext:UBLExtensions")
	}
	return root, exts, nil
}
