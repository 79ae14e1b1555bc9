package security

// Field groups batch the PHI fields that travel together on a record,
// so storage callers encrypt or decrypt a whole entity in one call.
var (
	ContactFields = []string{"phone", "email", "address", "emergency_contact"}

	ClinicalFields = []string{"diagnosis", "treatment_notes", "prescriptions", "allergies", "clinical_narrative"}

	IdentityFields = []string{"ssn", "insurance_member_id", "drivers_license", "date_of_birth"}
)

// FieldCodecResult reports what happened to each field during a batch
// decrypt, keyed by field name.
type FieldCodecResult struct {
	Corrupt []string
	Legacy  []string
}

// EncryptFields encrypts the named fields of record in place. Fields
// absent from the record or empty are skipped.
func (c *PHICipher) EncryptFields(record map[string]string, fields []string) error {
	for _, name := range fields {
		value, ok := record[name]
		if !ok || value == "" {
			continue
		}
		sealed, err := c.Encrypt(value)
		if err != nil {
			return err
		}
		record[name] = sealed
	}
	return nil
}

// DecryptFields decrypts the named fields of record in place and
// reports which fields were legacy plaintext or corrupt envelopes.
func (c *PHICipher) DecryptFields(record map[string]string, fields []string) FieldCodecResult {
	var result FieldCodecResult
	for _, name := range fields {
		value, ok := record[name]
		if !ok || value == "" {
			continue
		}
		plaintext, state := c.Decrypt(value)
		record[name] = plaintext
		switch state {
		case StateLegacyPlaintext:
			result.Legacy = append(result.Legacy, name)
		case StateCorrupt:
			result.Corrupt = append(result.Corrupt, name)
		}
	}
	return result
}
