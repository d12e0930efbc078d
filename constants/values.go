package constants

// NotAvailable is the placeholder written for any field without a value.
const NotAvailable = "N/A"

// Checkbox answers.
const (
	Oui = "Oui"
	Non = "Non"
)

// Signature zone answers.
const (
	SignaturePresent = "Présente"
	SignatureAbsent  = "Absente"
)
