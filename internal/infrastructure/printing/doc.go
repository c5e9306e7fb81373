// Package printing renders receipts and e-bills.
//
// TemplateEngine fills the embedded html/template documents with a
// sales.Receipt; ChromedpRenderer prints the resulting HTML to PDF through a
// headless Chrome, local or remote.
package printing
