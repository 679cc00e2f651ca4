// Package credential holds the credential data model shared by the issuance
// and verification services, along with its validation and comparison rules.
package credential

// Credential is a caller-submitted record describing a claim to be issued or
// verified. The id is caller-assigned and globally unique within the
// issuance store.
type Credential struct {
	ID             string `json:"id"`
	HolderName     string `json:"holderName"`
	CredentialType string `json:"credentialType"`
	IssueDate      string `json:"issueDate"`
	// ExpiryDate is optional. An absent value and an explicit null both
	// decode to the empty string, which is the null-equivalent for
	// comparison purposes.
	ExpiryDate string         `json:"expiryDate,omitempty"`
	IssuerName string         `json:"issuerName"`
	Data       map[string]any `json:"data"`
}

// IssuedCredential is a Credential plus issuance audit metadata. Immutable
// once created; identity is the embedded credential id.
type IssuedCredential struct {
	Credential
	// IssuedBy is the identity of the worker that issued the credential.
	IssuedBy string `json:"issuedBy"`
	// Timestamp is the time of issuance.
	Timestamp string `json:"timestamp"`
}

// VerificationResult is the recorded outcome of a single verification
// attempt. Created per call, appended to history, never mutated.
type VerificationResult struct {
	IsValid bool `json:"isValid"`
	// Credential is the authoritative issued record, attached whenever it
	// was found, even when its fields did not match the candidate.
	Credential            *IssuedCredential `json:"credential,omitempty"`
	VerifiedBy            string            `json:"verifiedBy"`
	VerificationTimestamp string            `json:"verificationTimestamp"`
	Message               string            `json:"message"`
}
