package extractor

// BuildInvoicePrompt returns the extraction prompt for invoice documents.
func BuildInvoicePrompt() string {
	return `You are a document data extraction assistant. Analyze the provided invoice document and extract ALL data into the following JSON structure.

IMPORTANT INSTRUCTIONS:
- Extract ALL line items from every page into a single flat "lineItems" array. Do not skip, summarize, or omit any items.
- Normalize all dates to MM/DD/YYYY format. Strip timestamps and other non-date text.
- Use plain numbers for amounts (no currency symbols, no thousands separators).

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation — just the raw JSON object.

The object must follow this schema:
{
  "vendor": {
    "name": "",
    "address": "",
    "taxId": ""
  },
  "invoice": {
    "number": "",
    "date": "",
    "currency": "",
    "subtotal": 0,
    "taxPercent": 0,
    "total": 0,
    "poNumber": "",
    "poDate": "",
    "lineItems": [
      {
        "description": "",
        "unitPrice": 0,
        "quantity": 0,
        "total": 0
      }
    ]
  }
}

If a field is not present in the document, omit it entirely rather than guessing. Never invent vendor names, invoice numbers, or amounts.`
}
