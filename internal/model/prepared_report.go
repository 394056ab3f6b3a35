package model

import "time"

// PreparedReport is the encrypted cache entry of a rendered report.
// The ciphertexts themselves live in object storage; DocumentObject and
// PayloadObject are their keys. Each ciphertext records the key id it was
// encrypted with, so a key rotation between the two encrypt calls cannot
// leave one of them undecryptable.
type PreparedReport struct {
	ID             string    `json:"id"`
	DocumentKeyID  string    `json:"document_key_id"`
	PayloadKeyID   string    `json:"payload_key_id"`
	DocumentObject string    `json:"document_object"`
	PayloadObject  string    `json:"payload_object"`
	CreatedDate    time.Time `json:"created_date"`
}
